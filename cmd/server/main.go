package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/api"
	"assetadmin/internal/catalog"
	"assetadmin/internal/config"
	"assetadmin/internal/files"
	"assetadmin/internal/form"
	"assetadmin/internal/logging"
	"assetadmin/internal/pg"
	"assetadmin/internal/reference"
	"assetadmin/internal/remote"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
)

func main() {
	cfg, err := config.Load("config.json", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Environment, "assetadmin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. справочники измерений
	dirs, err := reference.Load(cfg.ReferenceDir)
	if err != nil {
		return fmt.Errorf("load reference %s: %w", cfg.ReferenceDir, err)
	}
	ref := reference.NewCatalog(dirs)
	log.Info("reference loaded", zap.Int("directories", ref.Len()))

	var (
		catalogSrc catalog.Source
		st         store.Store
		resolver   scope.FieldResolver
		regions    form.RegionLookup = ref
		reload     api.ReloadFunc
	)

	if cfg.UpstreamURL != "" {
		// 2a. внешний сервис данных: каталог, маппинги, записи и регионы, оттуда
		client, err := remote.New(cfg.UpstreamURL, cfg.UpstreamToken, cfg.UpstreamTimeout)
		if err != nil {
			return err
		}
		catalogSrc, st, regions = client, client, client
		resolver = scope.NewRemoteResolver(client, log.Named("resolver"))
		reload = func(ctx context.Context) ([]*catalog.Module, map[string]reference.Directory, error) {
			mods, err := catalog.Snapshot(ctx, client)
			if err != nil {
				return nil, nil, err
			}
			dirs, err := reference.Load(cfg.ReferenceDir)
			return mods, dirs, err
		}
		log.Info("using upstream data service", zap.String("url", cfg.UpstreamURL))
	} else {
		// 2b. локально: каталог из файлов, хранилище, PostgreSQL или память
		reload = func(context.Context) ([]*catalog.Module, map[string]reference.Directory, error) {
			mods, err := catalog.LoadModules(cfg.CatalogDir)
			if err != nil {
				return nil, nil, err
			}
			dirs, err := reference.Load(cfg.ReferenceDir)
			return mods, dirs, err
		}
		if cfg.DBURL != "" {
			db, err := pg.Open(ctx, cfg.DBURL, pg.Pool{MaxOpen: cfg.DBMaxConns})
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()
			if cfg.AutoMigrate {
				if err := pg.ApplyDDL(ctx, db, pg.DDL(), log.Named("pg")); err != nil {
					return err
				}
			}
			st = pg.NewStore(db)
			log.Info("using PostgreSQL store")
		} else {
			st = store.NewMemory()
			log.Info("using in-memory store")
		}
		resolver = scope.NewResolver(st, log.Named("resolver"))
	}

	mods, _, err := reload(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	issues := catalog.Lint(mods)
	for _, it := range issues {
		log.Warn("catalog issue", zap.String("module", it.Module), zap.String("field", it.Field),
			zap.String("code", it.Code), zap.String("message", it.Message), zap.Bool("blocking", it.Blocking))
	}
	if catalog.HasBlocking(issues) {
		return errors.New("catalog has blocking issues")
	}
	cat := catalog.New(mods)
	if catalogSrc == nil {
		catalogSrc = cat
	}
	log.Info("catalog loaded", zap.Int("modules", len(mods)))

	// 3. формы
	sessions := form.NewSessions(form.Deps{
		Catalog:  catalogSrc,
		Resolver: resolver,
		Mappings: st,
		Regions:  regions,
		Records:  st,
		Names:    func(d scope.Dimension, id string) string { return ref.DimensionName(string(d), id) },
		Log:      log.Named("form"),
	}, cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	storage := &api.Storage{
		Catalog:    cat,
		Reference:  ref,
		Store:      st,
		Resolver:   resolver,
		Sessions:   sessions,
		Blob:       files.NewLocal(cfg.FilesRoot),
		Reload:     reload,
		DateFormat: cfg.DateFormat,
		Log:        log.Named("api"),
	}

	// 4. HTTP
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(storage, cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
