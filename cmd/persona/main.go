// Command persona manages the background facts the bot is prompted with.
//
//	persona add -info "Reimu likes green tea"
//	persona bulk-add -file facts.txt
//	persona list [-owner "Reimu Hakurei"]
//	persona delete -id background_info:abc
//	persona bulk-delete -ids background_info:a,background_info:b
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"reimubot/pkg/cache"
	"reimubot/pkg/config"
	"reimubot/pkg/memory"
	"reimubot/pkg/surreal"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	secrets, err := config.LoadToolSecrets()
	if err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
		os.Exit(1)
	}
	if !secrets.Surreal.Enabled() {
		fmt.Fprintln(os.Stderr, "SURREAL_DB_HOST is not set")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := secrets.Surreal
	client, err := surreal.NewClient(ctx, s.URL(), s.User, s.Pass, s.Namespace, s.Database)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer client.Close()

	var store memory.Store = memory.NewSurrealStore(ctx, client, 0)

	// Edits must drop the copy a running bot reads from Redis.
	if secrets.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(secrets.RedisURL, cfg.Storage.CachePrefix)
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: redis unavailable, running bots may serve the old persona:", err)
		} else {
			defer redisCache.Close()
			store = memory.NewCachedStore(store, redisCache)
		}
	}

	err = run(ctx, store, os.Args[1], os.Args[2:], os.Stdin, os.Stdout)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		usage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: persona <add|bulk-add|list|delete|bulk-delete> [flags]")
}

func run(ctx context.Context, store memory.Store, cmd string, args []string, stdin io.Reader, out io.Writer) error {
	switch cmd {
	case "add":
		return addCmd(ctx, store, args, out)
	case "bulk-add":
		return bulkAddCmd(ctx, store, args, stdin, out)
	case "list":
		return listCmd(ctx, store, args, out)
	case "delete":
		return deleteCmd(ctx, store, args, out)
	case "bulk-delete":
		return bulkDeleteCmd(ctx, store, args, out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func addCmd(ctx context.Context, store memory.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(out)
	owner := fs.String("owner", memory.PersonaOwner, "persona the fact belongs to")
	info := fs.String("info", "", "fact text (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	text := strings.TrimSpace(*info)
	if text == "" {
		return fmt.Errorf("%w: missing -info", errUsage)
	}
	if err := store.AddBackgroundInfo(ctx, *owner, text); err != nil {
		return err
	}
	fmt.Fprintf(out, "added 1 entry for %s\n", *owner)
	return nil
}

func bulkAddCmd(ctx context.Context, store memory.Store, args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("bulk-add", flag.ContinueOnError)
	fs.SetOutput(out)
	owner := fs.String("owner", memory.PersonaOwner, "persona the facts belong to")
	file := fs.String("file", "-", "file with one fact per line, - for stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	r := stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	infos, err := readLines(r)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "nothing to add")
		return nil
	}
	if err := store.AddBackgroundInfo(ctx, *owner, infos...); err != nil {
		return err
	}
	fmt.Fprintf(out, "added %d entries for %s\n", len(infos), *owner)
	return nil
}

// readLines returns the non-blank lines of r, trimmed. Lines starting with #
// are skipped.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func listCmd(ctx context.Context, store memory.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(out)
	owner := fs.String("owner", "", "only show this persona's facts")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var (
		infos []memory.BackgroundInfo
		err   error
	)
	if *owner != "" {
		infos, err = store.BackgroundInfo(ctx, *owner)
	} else {
		infos, err = store.ListBackgroundInfo(ctx)
	}
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "no entries")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(out, "%s\t%s\t%s\n", info.ID, info.Owner, info.Info)
	}
	return nil
}

func deleteCmd(ctx context.Context, store memory.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.String("id", "", "entry id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("%w: missing -id", errUsage)
	}
	return deleteIDs(ctx, store, []string{strings.TrimSpace(*id)}, out)
}

func bulkDeleteCmd(ctx context.Context, store memory.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bulk-delete", flag.ContinueOnError)
	fs.SetOutput(out)
	ids := fs.String("ids", "", "comma-separated entry ids (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var list []string
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			list = append(list, id)
		}
	}
	if len(list) == 0 {
		return fmt.Errorf("%w: missing -ids", errUsage)
	}
	return deleteIDs(ctx, store, list, out)
}

func deleteIDs(ctx context.Context, store memory.Store, ids []string, out io.Writer) error {
	n, err := store.DeleteBackgroundInfo(ctx, ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d of %d entries\n", n, len(ids))
	return nil
}
