// Package config loads the site's configuration.
//
// Process settings come from the environment (and an optional .env file):
//
//	SITE_ADDR=:8080
//	DATABASE_URL=sqlite://data/site.db
//	BACKEND_TIMEOUT=5s
//	REDIS_URL=redis://localhost:6379/0
//	LOG_LEVEL=debug LOG_FORMAT=json
//
// Site content and route overrides come from web/site.yaml:
//
//	name: Lumen
//	hero:
//	  headline: Marketing pages that load before the pitch ends
//	routes:
//	  list: /blog
//	  static: [/, /about, /privacy, /terms]
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	site, err := config.LoadSite(cfg.SiteFile)
package config
