package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/config"
	"github.com/viab/viab-backend/internal/database"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/repository/postgres"
)

const usage = `Usage: viab-tools <command> [flags]

Commands:
  dump-memory    -user <id> -session <id>   print a session's consolidated facts
  purge-session  -user <id> -session <id>   delete a session's memory, transcript and record
  list-sessions  -user <id>                 list a user's sessions
  migrate-down                              roll back the most recent schema migration
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	store, err := memory.NewStore(memory.StoreTypePostgres, memory.WithDB(db.DB))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open memory store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "dump-memory":
		user, session := scopeFlags(os.Args[2:], true)
		entries, err := store.List(ctx, memory.Scope{UserID: user, SessionID: session})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to read memory")
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %s\n", k, entries[k])
		}

	case "purge-session":
		user, session := scopeFlags(os.Args[2:], true)
		scope := memory.Scope{UserID: user, SessionID: session}
		if err := store.Purge(ctx, scope); err != nil {
			logrus.WithError(err).Fatal("Failed to purge memory")
		}
		transcripts := postgres.NewTranscriptRepository(db.DB)
		if err := transcripts.Purge(ctx, user, session); err != nil {
			logrus.WithError(err).Fatal("Failed to purge transcript")
		}
		sessions := postgres.NewSessionRepository(db.DB)
		if err := sessions.Delete(ctx, user, session); err != nil {
			logrus.WithError(err).Fatal("Failed to delete session record")
		}
		fmt.Printf("Purged session %s for user %s\n", session, user)

	case "list-sessions":
		user, _ := scopeFlags(os.Args[2:], false)
		sessions, err := postgres.NewSessionRepository(db.DB).List(ctx, user)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to list sessions")
		}
		for _, s := range sessions {
			fmt.Printf("%s\tcreated %s\tupdated %s\n",
				s.ID,
				s.CreatedAt.Format(time.RFC3339),
				s.UpdatedAt.Format(time.RFC3339))
		}

	case "migrate-down":
		if err := database.RollbackMigration(cfg.Database); err != nil {
			logrus.WithError(err).Fatal("Failed to roll back migration")
		}
		fmt.Println("Rolled back one migration step")

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func scopeFlags(args []string, needSession bool) (string, string) {
	fs := flag.NewFlagSet("scope", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	session := fs.String("session", "", "session id")
	fs.Parse(args)

	if *user == "" || (needSession && *session == "") {
		fs.Usage()
		os.Exit(2)
	}
	return *user, *session
}
