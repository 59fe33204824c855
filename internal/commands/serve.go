package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"taskhub/internal/api"
	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/notify"
	"taskhub/internal/store"
	"taskhub/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		conn, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer conn.Close()

		st := store.New(conn)
		syncAdmins(st, cfg.AdminNames)

		server := api.New(st, token.NewManager(cfg.TokenSecret), notify.NewPush(cfg.Notify))

		log.Printf("taskhub listening on %s", cfg.Addr)
		return http.ListenAndServe(cfg.Addr, server.Routes())
	},
}

// syncAdmins promotes the configured account names at startup. Accounts that
// have not registered yet are skipped; promotion happens on the next start.
func syncAdmins(st *store.Store, names []string) {
	ctx := context.Background()
	for _, name := range names {
		u, err := st.GetUserByName(ctx, name)
		if err != nil {
			if err != store.ErrNotFound {
				log.Printf("error looking up admin %q: %v", name, err)
			}
			continue
		}
		if u.Admin {
			continue
		}
		if err := st.PromoteUser(ctx, u.UserID); err != nil {
			log.Printf("error promoting admin %q: %v", name, err)
			continue
		}
		log.Printf("promoted admin user: %s", name)
	}
}

var adminCmd = &cobra.Command{
	Use:   "admin <name> <email> <password>",
	Short: "Create an admin account directly in the database",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		conn, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer conn.Close()

		st := store.New(conn)
		ctx := context.Background()

		u, err := st.CreateUser(ctx, args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		if err := st.PromoteUser(ctx, u.UserID); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}

		fmt.Printf("admin user %s created (%s)\n", u.Name, u.UserID)
		return nil
	},
}
