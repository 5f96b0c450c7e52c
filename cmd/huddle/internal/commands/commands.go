package commands

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/clientstate"
	"github.com/huddlehq/huddle/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureLogging(globals *Globals) {
	log.Logger = logger.Setup(globals.Debug)
	if !globals.Debug {
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	}
}

// ClientFlags is the shared client configuration: where the service lives
// and where client state is kept.
type ClientFlags struct {
	ServerURL string `help:"huddle server URL" env:"HUDDLE_SERVER" default:"http://localhost:8080"`
	StateDir  string `help:"Client state directory" env:"HUDDLE_STATE_DIR"`
}

func (f *ClientFlags) newManager() (*clientstate.Manager, error) {
	durable, err := clientstate.NewFileStore(f.StateDir)
	if err != nil {
		return nil, err
	}

	return clientstate.NewManager(clientstate.Config{
		Durable: clientstate.Resilient(durable),
		Issuer:  &clientstate.HTTPIssuer{BaseURL: f.ServerURL},
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
