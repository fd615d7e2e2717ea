// Package kafka connects marathon to its message brokers.
//
// Connect builds a kafka-go Dialer and Transport from Config, dials the
// first reachable broker in the comma-separated URL and fetches cluster
// metadata. The resulting Client is the dependency of kafka/producer.
//
//	app:
//	  services:
//	    kafka:
//	      api:
//	        client:
//	          url: localhost:9092
//	          client_id: marathon
package kafka
