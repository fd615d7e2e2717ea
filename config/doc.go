// Package config loads marathon's configuration tree with viper.
//
// Values come from a YAML file, an optional .env file (godotenv) and
// MARATHON_-prefixed environment variables, where a double underscore
// separates nested keys:
//
//	MARATHON_APP__PORT=8080
//	MARATHON_APP__SERVICES__REDIS__PASSWORD=secret
//
// Load returns a Source for path lookups; LoadConfig decodes straight into
// a struct tagged with mapstructure.
package config
