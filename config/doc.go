// Package config provides application configuration management.
//
// The config package loads the resource policy, backend selection, logging
// settings and language overrides from a YAML file and CODERUNNER_*
// environment variables, applying defaults for anything left unset.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Sandbox backend: %s\n", cfg.Sandbox.Backend)
package config
