// Package redis is the cache connector. It turns the app.services.redis
// section into go-redis options, connects with a PING, and wraps the result
// as a registry Component.
package redis
