package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/config"
	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/storage"
)

// backend is the identity provider and repositories of the active stack.
// identity and profiles are nil in catalog-only mode.
type backend struct {
	identity auth.IdentityProvider
	profiles db.ProfileRepository
	stories  db.StoryRepository
	catalog  db.CatalogRepository
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the stack selected by the configuration. Exactly one
// of Supabase/Postgres, Firebase/Firestore or the static catalog is used.
func openBackend(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*backend, error) {
	switch appConfig.Backend() {
	case config.BackendRelational:
		if appConfig.DatabaseAutoMigrate {
			if err := db.RunMigrations(appConfig.DatabaseURL); err != nil {
				return nil, fmt.Errorf("running migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		pg, err := db.NewPostgres(ctx, appConfig.DatabaseURL)
		if err != nil {
			return nil, err
		}
		provider, err := auth.NewSupabaseProvider(auth.SupabaseConfig{
			URL:            appConfig.SupabaseURL,
			ServiceRoleKey: appConfig.SupabaseServiceRoleKey,
		}, logger)
		if err != nil {
			pg.Close()
			return nil, err
		}
		return &backend{
			identity: provider,
			profiles: pg.Profiles(),
			stories:  pg.Stories(),
			catalog:  pg.Catalog(),
			closers:  []func(){pg.Close},
		}, nil

	case config.BackendDocument:
		clients, err := db.InitFirebase(ctx, appConfig, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			identity: auth.NewFirebaseProvider(clients.Auth, logger),
			profiles: db.NewFirestoreProfileRepository(clients.Firestore),
			stories:  db.NewFirestoreStoryRepository(clients.Firestore),
			catalog:  db.NewFirestoreCatalogRepository(clients.Firestore),
			closers: []func(){func() {
				if err := clients.Close(); err != nil {
					logger.Warn("Closing Firestore client failed", zap.Error(err))
				}
			}},
		}, nil

	default:
		static := db.NewStaticCatalog()
		return &backend{stories: static, catalog: static}, nil
	}
}

// openFileStore returns the S3 store when a bucket is configured and the
// local upload directory otherwise. localDir is empty for S3.
func openFileStore(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (store storage.FileStore, localDir string, err error) {
	if appConfig.S3BucketName != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          appConfig.S3BucketName,
			Region:          appConfig.S3Region,
			EndpointURL:     appConfig.S3EndpointURL,
			AccessKeyID:     appConfig.S3AccessKeyID,
			SecretAccessKey: appConfig.S3SecretAccessKey,
			PublicBaseURL:   appConfig.S3PublicBaseURL,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		return s3Store, "", nil
	}
	local, err := storage.NewLocalStore(appConfig.UploadDir, "/uploads", logger)
	if err != nil {
		return nil, "", err
	}
	return local, local.Root(), nil
}
