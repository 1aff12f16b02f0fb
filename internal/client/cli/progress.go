package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophprogress/internal/client/batch"
	"github.com/iudanet/gophprogress/internal/client/sync"
	"github.com/iudanet/gophprogress/internal/models"
)

func (a *App) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local progress without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			session, err := deps.Auth.Session(ctx)
			switch {
			case notLoggedIn(err):
				a.io.Println("Player:      not logged in")
			case err != nil:
				return fmt.Errorf("failed to read session: %w", err)
			default:
				a.io.Printf("Player:      %s\n", session.Username)
			}

			if err := deps.Progress.Load(ctx); err != nil {
				return fmt.Errorf("failed to load local progress: %w", err)
			}
			a.printRecord(deps.Progress.Snapshot())

			lastSync, err := deps.Metadata.GetLastSyncTimestamp(ctx)
			if err != nil {
				return fmt.Errorf("failed to read last sync time: %w", err)
			}
			a.io.Printf("Last sync:   %s\n", formatSyncTime(lastSync))
			return nil
		},
	}
}

func (a *App) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch server progress and merge it into the local record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			startErr := deps.Engine.Start(ctx)
			closeErr := deps.Engine.Close(ctx)
			if startErr != nil {
				return startErr
			}
			if closeErr != nil {
				return closeErr
			}

			a.io.Println("✓ Progress synchronized")
			a.printRecord(deps.Engine.Snapshot())
			return nil
		},
	}
}

func (a *App) playCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Record compose events from stdin",
		Long: `Reads one command per line:
  ITEM [gold] [redBag]   compose ITEM, optimistically adding the reward
  W                      flush the pending batch now
  quit                   flush and exit (same as EOF)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}
			return a.play(cmd, deps.Engine)
		},
	}
}

func (a *App) play(cmd *cobra.Command, engine Engine) error {
	ctx := cmd.Context()

	if err := engine.Start(ctx); err != nil {
		a.io.Printf("! Playing offline: %v\n", err)
	}
	a.printTotals(engine.Snapshot(), engine.Pending())

	for {
		line, err := a.io.ReadInput("")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = engine.Close(ctx)
			return fmt.Errorf("failed to read input: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return a.finishPlay(cmd, engine)
		case "w":
			if err := engine.Flush(ctx); err != nil {
				a.io.Printf("! Flush failed: %v\n", err)
			} else {
				a.io.Println("✓ Batch saved")
			}
			a.printTotals(engine.Snapshot(), engine.Pending())
			continue
		}

		item, reward, err := parseCompose(fields)
		if err != nil {
			a.io.Printf("! %v\n", err)
			continue
		}

		record, err := engine.Compose(item, reward)
		if errors.Is(err, batch.ErrClosed) {
			return err
		}
		if err != nil {
			a.io.Printf("! %v\n", err)
			continue
		}
		a.printTotals(record, engine.Pending())
	}

	return a.finishPlay(cmd, engine)
}

// finishPlay отправляет остаток батча. Неудача не ошибка команды:
// награды остаются в локальной записи до следующей синхронизации.
func (a *App) finishPlay(cmd *cobra.Command, engine Engine) error {
	if err := engine.Close(cmd.Context()); err != nil {
		a.io.Printf("! Final flush failed, progress kept locally: %v\n", err)
	}
	a.printRecord(engine.Snapshot())
	return nil
}

// parseCompose разбирает "ITEM [gold] [redBag]"
func parseCompose(fields []string) (string, sync.Reward, error) {
	if len(fields) > 3 {
		return "", sync.Reward{}, fmt.Errorf("expected ITEM [gold] [redBag], got %d fields", len(fields))
	}

	var reward sync.Reward
	amounts := []*int64{&reward.Gold, &reward.RedBag}
	for i, raw := range fields[1:] {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return "", sync.Reward{}, fmt.Errorf("invalid amount %q: must be a non-negative integer", raw)
		}
		*amounts[i] = v
	}
	return fields[0], reward, nil
}

func (a *App) printTotals(r models.ProgressRecord, pending int) {
	a.io.Printf("gold=%d redBag=%d wealth=%d pending=%d\n", r.GoldTotal(), r.RedBagTotal(), r.WealthCount, pending)
}

func (a *App) printRecord(r models.ProgressRecord) {
	a.io.Printf("Gold:        %d (composed %d, other %d)\n", r.GoldTotal(), r.GoldComposed, r.GoldOther)
	a.io.Printf("Red bags:    %d (composed %d, other %d)\n", r.RedBagTotal(), r.RedBagComposed, r.RedBagOther)
	a.io.Printf("Wealth:      %d\n", r.WealthCount)
	a.io.Printf("Level:       %d (exp %d)\n", r.Level, r.Exp)
	a.io.Printf("Draws:       %d\n", r.DrawCount)
	if gold, redBag := r.UnconfirmedGold(), r.UnconfirmedRedBag(); gold > 0 || redBag > 0 {
		a.io.Printf("Unconfirmed: +%d gold, +%d red bags\n", gold, redBag)
	}
}
