package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
)

var (
	annotateNoUpdate bool
	annotateUser     string
	annotateData     string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <insight-id> <annotation>",
	Short: "Record a decision on an insight",
	Long: `Record a decision on an insight. An annotation of 1 accepts the insight
and applies it to the catalog unless --no-update is given.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(func(ctx context.Context, s *session, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("insight id: %w", err)
		}
		decision, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("annotation: %w", err)
		}

		opts := annotate.Options{SkipUpdate: annotateNoUpdate}
		if annotateUser != "" {
			opts.Auth = &catalog.Auth{User: annotateUser}
		}
		if annotateData != "" {
			if err := json.Unmarshal([]byte(annotateData), &opts.Data); err != nil {
				return fmt.Errorf("data: %w", err)
			}
		}

		result, err := s.domain.Engine.AnnotateByID(ctx, id, decision, opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}),
}

func init() {
	annotateCmd.Flags().BoolVar(&annotateNoUpdate, "no-update", false, "record the decision without editing the catalog")
	annotateCmd.Flags().StringVar(&annotateUser, "user", "", "username recorded on the insight")
	annotateCmd.Flags().StringVar(&annotateData, "data", "", "JSON annotation data for types that require it")
}
