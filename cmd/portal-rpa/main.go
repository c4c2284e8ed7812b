// Command portal-rpa serves the identifier and submission API.
//
//	@title						Portal RPA API
//	@version					1.0
//	@description				Issues message identifiers and drives portal enquiries, publishing the result page and PDF report.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	APIKey
//	@in							header
//	@name						X-API-Key
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/portal-rpa/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		log.Error().Err(err).Msg("portal-rpa")
		os.Exit(1)
	}
}
