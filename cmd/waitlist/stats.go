package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	rldomain "waitlist-gateway/middleware/ratelimit/domain"
	"waitlist-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Mostra as decisões de rate limit gravadas no Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if cfg.redisAddr == "" {
			return errors.New("REDIS_ADDR is required for stats")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr, Password: cfg.redisPassword, DB: cfg.redisDB})
		defer func() { _ = rdb.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		return printStats(ctx, cmd.OutOrStdout(), infra.NewRedisStatsStore(rdb, infra.WithStatsPrefix(cfg.rateStatsPrefix)))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printStats(ctx context.Context, w io.Writer, r rldomain.StatsReader) error {
	sum, err := r.Summary(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tNAME\tALLOWED\tDENIED\tDENY%")
	row := func(group, name string, c rldomain.Counters) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\n", group, name, c.Allowed, c.Denied, c.DenyRate()*100)
	}
	row("total", "-", sum.Total)
	for _, k := range sortedKeys(sum.ByScope) {
		row("scope", k, sum.ByScope[k])
	}
	for _, k := range sortedKeys(sum.ByRoute) {
		row("route", k, sum.ByRoute[k])
	}
	return tw.Flush()
}

// logSummary registra o agregado em uma linha (usado no desligamento).
func logSummary(log zerolog.Logger, r rldomain.StatsReader) {
	sum, err := r.Summary(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("rate limit stats unavailable")
		return
	}
	ev := log.Info().Int64("allowed", sum.Total.Allowed).Int64("denied", sum.Total.Denied)
	for _, k := range sortedKeys(sum.ByScope) {
		ev = ev.Int64(k+"_denied", sum.ByScope[k].Denied)
	}
	ev.Msg("rate limit stats")
}

func sortedKeys(m map[string]rldomain.Counters) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
