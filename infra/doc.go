// Package infra contains technical adapters: metric sinks (Prometheus,
// InfluxDB, MQTT, webhook), the websocket event hub, the road network
// dataset loader and the logging and monitoring backends. These packages
// depend only on the interfaces defined in the core packages.
package infra
