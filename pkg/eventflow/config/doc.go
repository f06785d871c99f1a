/*
Package config reads stage settings out of YAML or JSON documents.

A Config wraps a decoded map[string]any. Keys may be dotted paths into
nested maps, and every accessor takes a default that is returned when the
key is missing or holds a value of the wrong type:

	cfg, err := config.FromFile("flow.yaml")
	if err != nil {
	    return err
	}
	size := cfg.Int("splitter.batch_size", 20)
	timeout := cfg.Duration("request_reply.timeout", 5*time.Second)
	router := cfg.Sub("router")

Durations accept Go duration strings ("250ms", "1m30s"); plain numbers are
read as milliseconds.

Files are passed through os.ExpandEnv before parsing, so ${VAR} references
are replaced with environment values.
*/
package config
