package commands

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/reconciler"
)

// ReconcileCmd runs one reconciliation cycle and prints the result as
// JSON. Intended for operators and external schedulers (cron); invoking
// it while a server is running is safe.
type ReconcileCmd struct {
	StoreFlags
	MediaFlags
}

func (r *ReconcileCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	meetings, closeStore, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rooms, err := r.roomService()
	if err != nil {
		return err
	}

	result, err := reconciler.New(meetings, rooms).RunCycle(ctx, time.Now())
	if err != nil {
		return err
	}

	log.Info().
		Int("activated", len(result.Activated)).
		Int("ended", len(result.Ended)).
		Msg("Reconciliation cycle complete")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
