// Package config loads hashpad.yaml or hashpad.json.
//
// The file is optional. Every field has a default, and a file only needs
// the fields it changes:
//
//	baseURL: https://pad.example.com/
//	debounce: 300ms
//	codec:
//	  maxTextSize: 2097152
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	log:
//	  format: json
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
