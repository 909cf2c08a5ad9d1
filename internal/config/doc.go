// Package config provides configuration management for wkfmanager.
//
// Configuration is a single YAML file, by default ~/.config/wkfmanager/config.yaml,
// overridable with the --config flag of the serve command. Values present in the
// file are merged over GetDefaultConfig; a missing file means pure defaults.
//
// # File Format
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	runtime:
//	  type: swarm          # swarm | kubernetes | memory
//	  network: myNet
//	  imagePrefix: trishaire/
//	  imageTag: latest
//	health:
//	  interval: 5s
//	  infraAttempts: 9
//	  componentAttempts: 4
//	notifications:
//	  port: 8080
//	  path: /results
//	infraComponent: cass
//	components:
//	  - name: order-verifier
//	    port: 1000
//	  - name: cass
//	    port: 9042
//	    image: trishaire/cass
//
// When catalogPath is set, the components list is read from that file instead
// (see LoadComponents) and reloaded whenever it changes.
//
// # Validation
//
// Config.Validate reports every problem at once as ValidationErrors, so a
// broken file can be fixed in one pass.
package config
