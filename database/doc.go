// Package database provides connection management, YAML and environment
// configuration, health checks, SQL script execution, query log and metrics
// hooks, driver error classification and logging, built on top of Bun.
package database
