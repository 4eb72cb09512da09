package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"moviedb/internal/models"
	"moviedb/internal/repository"
	"moviedb/internal/viewings"

	"github.com/spf13/cobra"
)

type ViewingOptions struct {
	IMDbID string
	Title  string // "Title" or "Title (Year)"
	Year   int64
	Venue  string
	Date   string
}

func NewViewingCommand(globalOptions *GlobalOptions) *cobra.Command {

	viewingCmd := &cobra.Command{
		Use:   "viewing",
		Short: "Manage the viewing record files",
	}

	viewingOptions := &ViewingOptions{}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new viewing with the next sequence number",
		Long: `Writes a new viewing file. When --title is omitted, title and year are taken
from the movies table. Run 'refresh viewings' afterwards to load it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewingAdd(cmd.Context(), cmd.OutOrStdout(), globalOptions, viewingOptions)
		},
	}
	viewingOptions.registerFlags(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the viewing record files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := viewings.LoadAll(globalOptions.Conf.Viewings.Dir)
			if err != nil {
				return err
			}
			return writeViewings(cmd.OutOrStdout(), all)
		},
	}

	// Add subcommands
	viewingCmd.AddCommand(addCmd)
	viewingCmd.AddCommand(listCmd)

	return viewingCmd
}

func (opt *ViewingOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opt.IMDbID, "imdb-id", "", "IMDb identifier of the movie (e.g. tt0133093).")
	cmd.Flags().StringVar(&opt.Title, "title", "", "Movie title, optionally as 'Title (Year)'.")
	cmd.Flags().Int64Var(&opt.Year, "year", 0, "Release year, when not part of --title.")
	cmd.Flags().StringVar(&opt.Venue, "venue", "", "Where the movie was watched.")
	cmd.Flags().StringVar(&opt.Date, "date", "", "Viewing date (YYYY-MM-DD), defaults to today.")
	_ = cmd.MarkFlagRequired("imdb-id")
	_ = cmd.MarkFlagRequired("venue")
}

// MovieLookup resolves a movie by its identifier.
type MovieLookup interface {
	GetMovie(ctx context.Context, imdbID string) (*models.Movie, error)
}

// buildViewing turns the options into a viewing, filling title and year
// from movies when no title is given.
func (opt *ViewingOptions) buildViewing(ctx context.Context, movies MovieLookup, now time.Time) (models.Viewing, error) {
	v := models.Viewing{
		IMDbID: opt.IMDbID,
		Title:  opt.Title,
		Year:   opt.Year,
		Venue:  opt.Venue,
		Date:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}

	if opt.Date != "" {
		d, err := time.Parse(models.DateLayout, opt.Date)
		if err != nil {
			return models.Viewing{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", opt.Date)
		}
		v.Date = d
	}

	if v.Title != "" && v.Year == 0 {
		title, year, err := viewings.ParseTitleWithYear(v.Title)
		if err != nil {
			return models.Viewing{}, fmt.Errorf("%w (or pass --year)", err)
		}
		v.Title, v.Year = title, year
	}

	if v.Title == "" {
		if movies == nil {
			return models.Viewing{}, fmt.Errorf("--title is required when the movie cannot be looked up")
		}
		movie, err := movies.GetMovie(ctx, v.IMDbID)
		if err != nil {
			return models.Viewing{}, err
		}
		v.Title, v.Year = movie.Title, movie.Year
		if opt.Year != 0 {
			v.Year = opt.Year
		}
	}
	return v, nil
}

func runViewingAdd(ctx context.Context, out io.Writer, globalOptions *GlobalOptions, viewingOptions *ViewingOptions) error {
	cfg := globalOptions.Conf

	var movies MovieLookup
	if viewingOptions.Title == "" {
		repo, err := repository.NewRepository(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize repository: %w", err)
		}
		defer repo.Close()
		movies = repo
	}

	v, err := viewingOptions.buildViewing(ctx, movies, time.Now())
	if err != nil {
		return err
	}

	all, err := viewings.LoadAll(cfg.Viewings.Dir)
	if err != nil {
		return err
	}
	v.Sequence = viewings.NextSequence(all)

	path, err := viewings.Save(cfg.Viewings.Dir, &v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Recorded viewing #%d of %s at %s: %s\n", v.Sequence, v.TitleWithYear(), v.Venue, path)
	return err
}

func writeViewings(out io.Writer, all []models.Viewing) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tDATE\tIMDB ID\tTITLE\tVENUE")
	for _, v := range all {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", v.Sequence, v.Date.Format(models.DateLayout), v.IMDbID, v.TitleWithYear(), v.Venue)
	}
	return w.Flush()
}
