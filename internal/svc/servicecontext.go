// Package svc builds the single application context referenced by every
// handler — no process-wide singletons, per spec.md §9's "replace global
// mutable state with an explicit application context" design note.
package svc

import (
	"context"
	"time"

	"github.com/gitdwsong72/auth-system/internal/admission"
	"github.com/gitdwsong72/auth-system/internal/audit"
	"github.com/gitdwsong72/auth-system/internal/cache"
	"github.com/gitdwsong72/auth-system/internal/config"
	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/login"
	"github.com/gitdwsong72/auth-system/internal/password"
	"github.com/gitdwsong72/auth-system/internal/platform"
	"github.com/gitdwsong72/auth-system/internal/refreshflow"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/repository"
	"github.com/gitdwsong72/auth-system/internal/session"
	"github.com/gitdwsong72/auth-system/internal/verifygate"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

type ServiceContext struct {
	Config config.Config

	Store      volatilestore.Store
	Repo       *repository.Repository
	Principals *repository.PrincipalRepo
	RefreshRepo *repository.RefreshRepo
	Registry   *registry.Registry
	Cache      *cache.Cache
	Codec      *credential.Codec
	Hasher     *password.Hasher
	Audit      audit.Sink

	RateLimiter  *admission.RateLimiter
	Backpressure *admission.Backpressure

	Login      *login.Coordinator
	Refresh    *refreshflow.Coordinator
	Session    *session.Coordinator
	IssuerGate *verifygate.IssuerGate
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	db, err := platform.NewPostgres(c.Database)
	if err != nil {
		return nil, err
	}
	redisClient, err := platform.NewRedis(c.Redis)
	if err != nil {
		return nil, err
	}
	store := volatilestore.NewRedisStore(redisClient)

	repo := repository.New(db)
	principals := repository.NewPrincipalRepo(db)
	refreshRepo := repository.NewRefreshRepo(db)
	reg := registry.New(store)
	c2 := cache.New(db, store)
	sink := audit.NewLogxSink()
	hasher := password.New(password.DefaultCost)

	codec, err := credential.New(credential.Config{
		Algorithm:         credential.Algorithm(c.JWT.Algorithm),
		Issuer:            c.JWT.Issuer,
		PrivateKeyPath:    c.JWT.PrivateKeyPath,
		PublicKeyPath:     c.JWT.PublicKeyPath,
		SecretKey:         c.JWT.SecretKey,
		AccessTTLMins:     c.JWT.AccessTokenExpireMins,
		RefreshTTLDays:    c.JWT.RefreshTokenExpireDays,
		Production:        c.Env == "production",
		VolatileStoreURL:  c.Redis.URL,
	})
	if err != nil {
		return nil, err
	}

	accessTTL := c.JWT.AccessTTL()
	refreshTTL := c.JWT.RefreshTTL()

	loginCoord := login.New(store, repo, principals, refreshRepo, reg, codec, hasher, c2, sink, c.Password, accessTTL, refreshTTL)
	refreshCoord := refreshflow.New(repo, principals, refreshRepo, reg, codec, accessTTL, refreshTTL)
	sessionCoord := session.New(codec, refreshRepo, reg, accessTTL)
	issuerGate := verifygate.NewIssuerGate(codec, reg, principals)

	buckets := c.RateLimit.Buckets
	if len(buckets) == 0 {
		buckets = config.DefaultBuckets()
	}

	return &ServiceContext{
		Config:       c,
		Store:        store,
		Repo:         repo,
		Principals:   principals,
		RefreshRepo:  refreshRepo,
		Registry:     reg,
		Cache:        c2,
		Codec:        codec,
		Hasher:       hasher,
		Audit:        sink,
		RateLimiter:  admission.NewRateLimiter(store, buckets),
		Backpressure: admission.NewBackpressure(c.Backpressure),
		Login:        loginCoord,
		Refresh:      refreshCoord,
		Session:      sessionCoord,
		IssuerGate:   issuerGate,
	}, nil
}

// StartBackgroundTasks launches the periodic expired-cache cleanup task
// named in spec.md §5 (default interval 1h). Callers should cancel ctx on
// shutdown.
func (s *ServiceContext) StartBackgroundTasks(ctx context.Context) {
	go s.Cache.RunCleanup(ctx, time.Hour)
}
