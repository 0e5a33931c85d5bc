// Package influxdb stores Ayla datapoint history in InfluxDB.
//
// The bridge writes every property update it sees (from polling or the
// datastream) as an "ayla_datapoint" point tagged by dsn, property and base
// type, and every connection change as an "ayla_connection" point. The local
// API reads history back through PropertyHistory.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDatapoint(dsn, "Blue_LED", "boolean", 1, time.Now())
package influxdb
