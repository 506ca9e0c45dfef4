package core

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Runtime is the shared dependency bundle the authorization and connect
// components hang off: resolved config, logging, metrics, stores, the platform
// registry, and the upstream connector client.
type Runtime struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	attemptStore    AttemptStore
	registry        *PlatformRegistry
	tenantStore     TenantStore
	sessionVerifier SessionVerifier
	connector       ConnectorClient
}

func NewRuntime(cfg Config, options ...Option) (*Runtime, error) {
	builder := defaultComponentBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("connect", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connect"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.registry == nil {
		builder.registry = NewPlatformRegistry()
	}

	finalConfig, err := ResolveConfig(context.Background(), builder.configProvider, builder.optionsResolver, builder.runtimeConfig)
	if err != nil {
		return nil, builder.errorMapper(err)
	}

	if builder.attemptStore == nil {
		builder.attemptStore = NewMemoryAttemptStore(finalConfig.AttemptTTL)
	}

	return &Runtime{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		attemptStore:    builder.attemptStore,
		registry:        builder.registry,
		tenantStore:     builder.tenantStore,
		sessionVerifier: builder.sessionVerifier,
		connector:       builder.connector,
	}, nil
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Logger() Logger {
	if r == nil {
		return nil
	}
	return r.logger
}

func (r *Runtime) MetricsRecorder() MetricsRecorder {
	if r == nil {
		return NopMetricsRecorder{}
	}
	return r.metricsRecorder
}

func (r *Runtime) ErrorMapper() ErrorMapper {
	if r == nil || r.errorMapper == nil {
		return defaultErrorMapper
	}
	return r.errorMapper
}

func (r *Runtime) AttemptStore() AttemptStore {
	if r == nil {
		return nil
	}
	return r.attemptStore
}

func (r *Runtime) Registry() *PlatformRegistry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Runtime) TenantStore() TenantStore {
	if r == nil {
		return nil
	}
	return r.tenantStore
}

func (r *Runtime) SessionVerifier() SessionVerifier {
	if r == nil {
		return nil
	}
	return r.sessionVerifier
}

func (r *Runtime) Connector() ConnectorClient {
	if r == nil {
		return nil
	}
	return r.connector
}

// RequireTenantStore guards constructors that cannot run without persistence.
func (r *Runtime) RequireTenantStore() (TenantStore, error) {
	if r == nil || r.tenantStore == nil {
		return nil, fmt.Errorf("core: tenant store is required")
	}
	return r.tenantStore, nil
}

// RequireConnector guards constructors that cannot run without the upstream
// connector.
func (r *Runtime) RequireConnector() (ConnectorClient, error) {
	if r == nil || r.connector == nil {
		return nil, fmt.Errorf("core: connector client is required")
	}
	return r.connector, nil
}
