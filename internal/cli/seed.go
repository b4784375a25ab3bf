package cli

import (
	"fmt"

	"github.com/cwrk-planet/live-room-service/internal/postgres"
	"github.com/cwrk-planet/live-room-service/internal/yamlstore"

	"github.com/spf13/cobra"
)

// seedCmd переносит yaml-конфиги комнат в postgres.
func seedCmd() *cobra.Command {
	var (
		dsn     string
		dir     string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "seed ROOM_ID...",
		Short: "Load room configs from YAML files into postgres",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}
			ctx := cmd.Context()

			db, err := postgres.New(ctx, postgres.Config{DSN: dsn, ApplicationName: "roomctl"})
			if err != nil {
				return err
			}
			defer db.Close()
			if migrate {
				if err := db.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			files := yamlstore.New(dir)
			repo := postgres.NewRoomConfigRepository(db.Pool)
			for _, id := range args {
				cfg, err := files.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("room %s: %w", id, err)
				}
				if err := repo.Save(ctx, cfg); err != nil {
					return fmt.Errorf("save room %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%d products)\n", id, len(cfg.Slots))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres DSN")
	cmd.Flags().StringVar(&dir, "dir", "./config/rooms", "directory with <room_id>.yaml files")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before seeding")
	return cmd
}
