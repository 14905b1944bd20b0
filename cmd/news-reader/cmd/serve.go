package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"news-reader/internal/articles"
	"news-reader/internal/catalog"
	"news-reader/internal/config"
	"news-reader/internal/markdown"
	"news-reader/internal/playback"
	"news-reader/internal/server"
	"news-reader/internal/session"
)

type serveFlags struct {
	addr     string
	media    string
	catalog  string
	endpoint string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reader page, its API and the podcast feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address; overrides NEWS_READER_LISTEN_ADDR")
	cmd.Flags().StringVar(&flags.media, "media", "", "Media directory; overrides NEWS_READER_MEDIA_DIR")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Article catalog file; overrides NEWS_READER_CATALOG_FILE")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "Article generation endpoint; overrides NEWS_READER_ARTICLE_ENDPOINT")

	return cmd
}

func runServe(ctx context.Context, flags serveFlags) error {
	if flags.media != "" {
		if err := os.Setenv("NEWS_READER_MEDIA_DIR", flags.media); err != nil {
			return err
		}
	}
	mediaRoot, err := config.ResolveMediaRoot()
	if err != nil {
		return fmt.Errorf("resolve media root: %w", err)
	}

	listenAddr := config.ListenAddr()
	if flags.addr != "" {
		listenAddr = flags.addr
	}
	if err := config.ValidateListenAddr(listenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", listenAddr, err)
	}

	catalogFile, err := config.ResolveCatalogFile()
	if err != nil {
		return fmt.Errorf("resolve catalog file: %w", err)
	}
	if flags.catalog != "" {
		catalogFile, err = filepath.Abs(flags.catalog)
		if err != nil {
			return fmt.Errorf("resolve catalog file: %w", err)
		}
	}

	endpoint := config.ArticleEndpoint()
	if flags.endpoint != "" {
		endpoint = flags.endpoint
	}

	renderOpts, err := config.RenderOptions()
	if err != nil {
		return fmt.Errorf("resolve render options: %w", err)
	}

	site, err := config.ResolveSiteMetadata()
	if err != nil {
		return fmt.Errorf("resolve site metadata: %w", err)
	}

	cat, err := catalog.Open(catalogFile, config.RefreshDebounce(), logger)
	if err != nil {
		return fmt.Errorf("initialise catalog: %w", err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing catalog")
		}
	}()

	renderer := markdown.New(renderOpts)
	store := session.NewStore(session.Config{
		Catalog:  cat,
		Fetcher:  articles.NewFetcher(endpoint, mediaRoot, nil, logger),
		Renderer: renderer,
		Opener:   playback.NewTrackOpener(mediaRoot, config.PlaybackTick(), nil, logger),
		Logger:   logger,
	}, config.SessionTTL())
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing session store")
		}
	}()

	handler := server.New(server.Options{
		Sessions:        store,
		Catalog:         cat,
		Renderer:        renderer,
		MediaRoot:       mediaRoot,
		MediaExtensions: config.MediaExtensions(),
		Site: server.SiteMetadata{
			Title:       site.Title,
			Byline:      site.Byline,
			Footer:      site.Footer,
			Description: site.Description,
			Language:    site.Language,
			Author:      site.Author,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("graceful shutdown error")
		}
	}()

	logger.Info().
		Str("addr", listenAddr).
		Str("media", mediaRoot).
		Str("catalog", catalogFile).
		Int("articles", cat.Len()).
		Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
