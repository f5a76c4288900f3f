// Package main provides the serve command for the oba LDAP server.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/oba-ldap/oba/internal/backend"
	"github.com/oba-ldap/oba/internal/config"
	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/ldap"
	"github.com/oba-ldap/oba/internal/logging"
	"github.com/oba-ldap/oba/internal/server"
)

// Server errors.
var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrListenerFailed       = errors.New("failed to create listener")
)

// LDAPServer represents the LDAP server instance.
type LDAPServer struct {
	config             *config.Config
	configFile         string
	configManager      *config.ConfigManager
	logger             logging.Logger
	handler            *server.Handler
	backend            *backend.ObaBackend
	listener           net.Listener
	tlsListener        net.Listener
	tlsConfig          *tls.Config
	tlsCertFile        string
	tlsKeyFile         string
	configWatcher      *config.ConfigWatcher
	extendedDispatcher *server.ExtendedDispatcher
	pidFile            string
	running            bool
	mu                 sync.Mutex
	wg                 sync.WaitGroup
	ctx                context.Context
	cancel             context.CancelFunc

	// Hot-reloadable settings
	maxConnections int
	readTimeout    time.Duration
	writeTimeout   time.Duration
	settingsMu     sync.RWMutex
}

// NewServer creates a new LDAP server with the given configuration.
func NewServer(cfg *config.Config) (*LDAPServer, error) {
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	sysLogger := logger.WithFields("source", "system")

	// Create backend (entries live in memory for the lifetime of the process)
	be := backend.NewBackend(cfg)

	// Apply security settings from config
	be.SetRateLimitConfig(
		cfg.Security.RateLimit.Enabled,
		cfg.Security.RateLimit.MaxAttempts,
		cfg.Security.RateLimit.LockoutDuration,
	)
	be.SetPasswordPolicy(convertPasswordPolicy(&cfg.Security.PasswordPolicy))

	// Create handler with backend integration
	handler := server.NewHandler()
	extendedDispatcher := setupHandlers(handler, be, cfg, logger)

	// Create TLS config if certificates are provided
	var tlsConfig *tls.Config
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		tlsCfg := server.NewTLSConfig().WithCertFile(cfg.Server.TLSCert, cfg.Server.TLSKey)
		var err error
		tlsConfig, err = server.LoadTLSConfig(tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	sysLogger.Info("backend initialized", "rootDN", cfg.Directory.RootDN)

	return &LDAPServer{
		config:             cfg,
		logger:             logger,
		handler:            handler,
		backend:            be,
		extendedDispatcher: extendedDispatcher,
		tlsConfig:          tlsConfig,
		tlsCertFile:        cfg.Server.TLSCert,
		tlsKeyFile:         cfg.Server.TLSKey,
		maxConnections:     cfg.Server.MaxConnections,
		readTimeout:        cfg.Server.ReadTimeout,
		writeTimeout:       cfg.Server.WriteTimeout,
		ctx:                ctx,
		cancel:             cancel,
	}, nil
}

// setupHandlers configures the LDAP operation handlers, routing search,
// add, delete, modify, compare, and modifydn through the control-aware
// handler implementations in internal/server (§4.11 request controls) with
// be as their backend. Bind keeps its own closure since account lockout and
// rate limiting aren't modeled as a server.Backend concern. It returns the
// extended-operation dispatcher (Who Am I, Password Modify) for the caller
// to attach to each connection and advertise on the root DSE.
func setupHandlers(h *server.Handler, be *backend.ObaBackend, cfg *config.Config, logger logging.Logger) *server.ExtendedDispatcher {
	// Bind handler
	h.SetBindHandler(func(conn *server.Connection, req *ldap.BindRequest) *server.OperationResult {
		if req.IsAnonymous() {
			return &server.OperationResult{ResultCode: ldap.ResultSuccess}
		}

		// Check if account is locked
		if be.IsAccountLocked(req.Name) {
			return &server.OperationResult{
				ResultCode:        ldap.ResultInvalidCredentials,
				DiagnosticMessage: "account is locked due to too many failed attempts",
			}
		}

		err := be.Bind(req.Name, string(req.SimplePassword))
		if err != nil {
			be.RecordAuthFailure(req.Name)
			return &server.OperationResult{
				ResultCode:        ldap.ResultInvalidCredentials,
				DiagnosticMessage: "invalid credentials",
			}
		}

		be.RecordAuthSuccess(req.Name)
		return &server.OperationResult{ResultCode: ldap.ResultSuccess}
	})

	extendedDispatcher := server.NewExtendedDispatcher()
	_ = extendedDispatcher.Register(server.NewWhoAmIHandler())

	pmConfig := server.NewPasswordModifyConfig()
	pmConfig.Backend = backend.NewPasswordBackend(be)
	if cfg.Directory.RootDN != "" {
		pmConfig.AdminDNs = append(pmConfig.AdminDNs, cfg.Directory.RootDN)
	}
	_ = extendedDispatcher.Register(server.NewPasswordModifyHandler(pmConfig))

	rootDSEConfig := server.NewRootDSEConfig().
		WithNamingContexts(cfg.Directory.BaseDN).
		WithSupportedControls(controls.SupportedOIDs...).
		WithExtendedDispatcher(extendedDispatcher)

	searchConfig := server.NewSearchConfig()
	searchConfig.Backend = be
	searchConfig.RootDSE = server.NewRootDSEProvider(rootDSEConfig)
	h.SetSearchHandler(server.CreateSearchHandler(server.NewSearchHandler(searchConfig)))

	addConfig := server.NewAddConfig()
	addConfig.Backend = be
	h.SetAddHandler(server.CreateAddHandler(server.NewAddHandler(addConfig)))

	deleteConfig := server.NewDeleteConfig()
	deleteConfig.Backend = be
	h.SetDeleteHandler(server.CreateDeleteHandler(server.NewDeleteHandler(deleteConfig)))

	modifyConfig := server.NewModifyConfig()
	modifyConfig.Backend = be
	h.SetModifyHandler(server.CreateModifyHandler(server.NewModifyHandler(modifyConfig)))

	compareConfig := server.NewCompareConfig()
	compareConfig.Backend = be
	h.SetCompareHandler(server.CreateCompareHandler(server.NewCompareHandler(compareConfig)))

	modifyDNConfig := server.NewModifyDNConfig()
	modifyDNConfig.Backend = backend.NewModifyDNBackend(be)
	modifyDNConfig.ErrorMapper = mapModifyDNError
	h.SetModifyDNHandler(server.CreateModifyDNHandler(server.NewModifyDNHandler(modifyDNConfig)))

	return extendedDispatcher
}

// mapModifyDNError maps backend.ObaBackend's ModifyDN errors to the result
// code categories server.ModifyDNHandlerImpl expects.
func mapModifyDNError(err error) server.ModifyDNError {
	switch {
	case errors.Is(err, backend.ErrEntryNotFound):
		return server.ModifyDNErrEntryNotFound
	case errors.Is(err, backend.ErrEntryExists):
		return server.ModifyDNErrEntryExists
	case errors.Is(err, backend.ErrInvalidDN), errors.Is(err, backend.ErrInvalidEntry):
		return server.ModifyDNErrInvalidDN
	case errors.Is(err, backend.ErrNewSuperiorNotFound):
		return server.ModifyDNErrNewSuperiorNotFound
	case errors.Is(err, backend.ErrAffectsMultipleDSAs):
		return server.ModifyDNErrAffectsMultipleDSAs
	default:
		return server.ModifyDNErrOther
	}
}

// Start starts the LDAP server.
func (s *LDAPServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	// Start plain LDAP listener
	if s.config.Server.Address != "" {
		listener, err := net.Listen("tcp", s.config.Server.Address)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrListenerFailed, err)
		}
		s.mu.Lock()
		s.listener = listener
		s.mu.Unlock()
		s.logger.Info("LDAP server listening", "address", s.config.Server.Address)

		s.wg.Add(1)
		go s.acceptConnections(listener, false)
	}

	// Start TLS listener if configured
	if s.config.Server.TLSAddress != "" && s.tlsConfig != nil {
		listener, err := tls.Listen("tcp", s.config.Server.TLSAddress, s.tlsConfig)
		if err != nil {
			s.mu.Lock()
			if s.listener != nil {
				s.listener.Close()
			}
			s.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrListenerFailed, err)
		}
		s.mu.Lock()
		s.tlsListener = listener
		s.mu.Unlock()
		s.logger.Info("LDAPS server listening", "address", s.config.Server.TLSAddress)

		s.wg.Add(1)
		go s.acceptConnections(listener, true)
	}

	s.wg.Wait()
	return nil
}

// Stop gracefully stops the LDAP server.
func (s *LDAPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrServerNotRunning
	}
	s.running = false

	listener := s.listener
	tlsListener := s.tlsListener
	s.mu.Unlock()

	s.cancel()

	if listener != nil {
		listener.Close()
	}
	if tlsListener != nil {
		tlsListener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("server shutdown timed out")
		return ctx.Err()
	}
}

// acceptConnections accepts incoming connections on the listener.
func (s *LDAPServer) acceptConnections(listener net.Listener, isTLS bool) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				if isClosedError(err) {
					return
				}
				s.logger.Warn("accept error", "error", err.Error())
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn, isTLS)
	}
}

// handleConnection handles a single client connection.
func (s *LDAPServer) handleConnection(conn net.Conn, isTLS bool) {
	defer s.wg.Done()

	srv := &server.Server{
		Handler: s.handler,
		Logger:  s.logger,
	}

	c := server.NewConnection(conn, srv)
	c.SetTLS(isTLS)
	c.SetExtendedDispatcher(s.extendedDispatcher)
	c.SetTLSConfig(s.tlsConfig)
	c.Handle()
}

// isClosedError checks if the error is due to a closed listener.
func isClosedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, net.ErrClosed) ||
		containsString(err.Error(), "use of closed network connection")
}

// containsString checks if s contains substr.
func containsString(s, substr string) bool {
	return len(s) >= len(substr) && findSubstr(s, substr)
}

// findSubstr performs a simple substring search.
func findSubstr(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	address := fs.String("address", "", "Listen address (overrides config)")
	tlsAddress := fs.String("tls-address", "", "TLS listen address (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	// Load configuration
	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply command-line overrides (higher priority than config file)
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *tlsAddress != "" {
		cfg.Server.TLSAddress = *tlsAddress
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Apply environment variable overrides (highest priority)
	applyEnvOverrides(cfg)

	// Validate configuration
	errs := config.ValidateConfig(cfg)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration errors:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return 1
	}

	// Create server
	srv, err := NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		return 1
	}

	srv.configFile = *configFile

	if *configFile != "" {
		srv.configManager = config.NewConfigManager(cfg, *configFile)
		srv.configManager.SetOnUpdate(srv.handleConfigReload)
	}

	// Write PID file
	if cfg.Server.PIDFile != "" {
		if err := srv.writePIDFile(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write PID file: %v\n", err)
			return 1
		}
		defer srv.removePIDFile()
	}

	// Start config file watcher if config file is specified
	if *configFile != "" {
		configWatcher, err := config.NewConfigWatcher(&config.WatcherConfig{
			FilePath: *configFile,
			OnChange: srv.handleConfigReload,
		})
		if err != nil {
			srv.logger.Warn("failed to create config watcher", "error", err)
		} else {
			srv.configWatcher = configWatcher
			configWatcher.Start()
			srv.logger.Info("config file watcher started", "file", *configFile)
			defer configWatcher.Stop()
		}
	}

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				srv.logger.Info("received SIGHUP, reloading configuration")
				if err := srv.reloadConfigFile(); err != nil {
					srv.logger.Error("config reload failed", "error", err)
				}
			case syscall.SIGINT, syscall.SIGTERM:
				srv.logger.Info("received signal, shutting down", "signal", sig.String())

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := srv.Stop(shutdownCtx); err != nil {
					fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
					return 1
				}
				return 0
			}

		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				return 1
			}
			return 0
		}
	}
}

// writePIDFile writes the process ID to the configured PID file.
func (s *LDAPServer) writePIDFile() error {
	pidFile := s.config.Server.PIDFile
	if pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid))

	if err := os.WriteFile(pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	s.pidFile = pidFile
	s.logger.Info("PID file written", "file", pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (s *LDAPServer) removePIDFile() {
	if s.pidFile != "" {
		os.Remove(s.pidFile)
		s.logger.Debug("PID file removed", "file", s.pidFile)
	}
}

// SetMaxConnections updates the maximum connections limit at runtime.
func (s *LDAPServer) SetMaxConnections(max int) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.maxConnections = max
}

// GetMaxConnections returns the current maximum connections limit.
func (s *LDAPServer) GetMaxConnections() int {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.maxConnections
}

// SetReadTimeout updates the read timeout for new connections.
func (s *LDAPServer) SetReadTimeout(timeout time.Duration) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.readTimeout = timeout
}

// GetReadTimeout returns the current read timeout.
func (s *LDAPServer) GetReadTimeout() time.Duration {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.readTimeout
}

// SetWriteTimeout updates the write timeout for new connections.
func (s *LDAPServer) SetWriteTimeout(timeout time.Duration) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.writeTimeout = timeout
}

// GetWriteTimeout returns the current write timeout.
func (s *LDAPServer) GetWriteTimeout() time.Duration {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.writeTimeout
}

// ReloadTLSCert reloads TLS certificate and key from files.
func (s *LDAPServer) ReloadTLSCert(certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	if s.tlsConfig != nil {
		s.tlsConfig.Certificates = []tls.Certificate{cert}
	}
	s.tlsCertFile = certFile
	s.tlsKeyFile = keyFile

	return nil
}

// reloadConfigFile re-reads the server's config file from disk and applies
// any hot-reloadable settings that changed. It is a no-op if the server
// was not started with -config.
func (s *LDAPServer) reloadConfigFile() error {
	if s.configFile == "" {
		s.logger.Warn("SIGHUP received but no config file is in use")
		return nil
	}

	newCfg, err := config.LoadConfig(s.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	errs := config.ValidateConfig(newCfg)
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %v", errs[0])
	}

	s.handleConfigReload(s.config, newCfg)
	return nil
}

// handleConfigReload handles config file changes and applies hot-reloadable settings.
func (s *LDAPServer) handleConfigReload(oldCfg, newCfg *config.Config) {
	s.logger.Info("config file changed, applying hot-reloadable settings")

	// Server settings
	if oldCfg.Server.MaxConnections != newCfg.Server.MaxConnections {
		s.SetMaxConnections(newCfg.Server.MaxConnections)
		s.logger.Info("max connections changed", "old", oldCfg.Server.MaxConnections, "new", newCfg.Server.MaxConnections)
	}
	if oldCfg.Server.ReadTimeout != newCfg.Server.ReadTimeout {
		s.SetReadTimeout(newCfg.Server.ReadTimeout)
		s.logger.Info("read timeout changed", "old", oldCfg.Server.ReadTimeout, "new", newCfg.Server.ReadTimeout)
	}
	if oldCfg.Server.WriteTimeout != newCfg.Server.WriteTimeout {
		s.SetWriteTimeout(newCfg.Server.WriteTimeout)
		s.logger.Info("write timeout changed", "old", oldCfg.Server.WriteTimeout, "new", newCfg.Server.WriteTimeout)
	}

	// TLS certificate reload
	if oldCfg.Server.TLSCert != newCfg.Server.TLSCert || oldCfg.Server.TLSKey != newCfg.Server.TLSKey {
		if newCfg.Server.TLSCert != "" && newCfg.Server.TLSKey != "" {
			if err := s.ReloadTLSCert(newCfg.Server.TLSCert, newCfg.Server.TLSKey); err != nil {
				s.logger.Error("failed to reload TLS certificate", "error", err)
			} else {
				s.logger.Info("TLS certificate reloaded")
			}
		}
	}

	// Security rate limit settings
	if oldCfg.Security.RateLimit.Enabled != newCfg.Security.RateLimit.Enabled ||
		oldCfg.Security.RateLimit.MaxAttempts != newCfg.Security.RateLimit.MaxAttempts ||
		oldCfg.Security.RateLimit.LockoutDuration != newCfg.Security.RateLimit.LockoutDuration {
		s.backend.SetRateLimitConfig(
			newCfg.Security.RateLimit.Enabled,
			newCfg.Security.RateLimit.MaxAttempts,
			newCfg.Security.RateLimit.LockoutDuration,
		)
		s.logger.Info("rate limit config changed",
			"enabled", newCfg.Security.RateLimit.Enabled,
			"maxAttempts", newCfg.Security.RateLimit.MaxAttempts,
			"lockoutDuration", newCfg.Security.RateLimit.LockoutDuration,
		)
	}

	// Password policy settings
	if passwordPolicyChanged(oldCfg, newCfg) {
		policy := convertPasswordPolicy(&newCfg.Security.PasswordPolicy)
		s.backend.SetPasswordPolicy(policy)
		s.logger.Info("password policy changed", "enabled", newCfg.Security.PasswordPolicy.Enabled)
	}

	s.config = newCfg
	s.logger.Info("config reload completed")
}

// passwordPolicyChanged checks if password policy settings changed.
func passwordPolicyChanged(oldCfg, newCfg *config.Config) bool {
	old := &oldCfg.Security.PasswordPolicy
	new := &newCfg.Security.PasswordPolicy
	return old.Enabled != new.Enabled ||
		old.MinLength != new.MinLength ||
		old.RequireUppercase != new.RequireUppercase ||
		old.RequireLowercase != new.RequireLowercase ||
		old.RequireDigit != new.RequireDigit ||
		old.RequireSpecial != new.RequireSpecial ||
		old.MaxAge != new.MaxAge ||
		old.HistoryCount != new.HistoryCount
}

// convertPasswordPolicy converts config password policy to backend.PasswordPolicy.
func convertPasswordPolicy(cfg *config.PasswordPolicyConfig) *backend.PasswordPolicy {
	return &backend.PasswordPolicy{
		Enabled:          cfg.Enabled,
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireDigit:     cfg.RequireDigit,
		RequireSpecial:   cfg.RequireSpecial,
		MaxAge:           cfg.MaxAge,
		HistoryCount:     cfg.HistoryCount,
	}
}
