package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/internal/config"
	"github.com/yukin371/seekchat/internal/session"
	"github.com/yukin371/seekchat/internal/storage"
	"github.com/yukin371/seekchat/pkg/logger"
)

// app 持有一次命令执行所需的配置、日志和存储
type app struct {
	cfg        *config.Config
	configPath string
	log        *logger.Logger
	sessions   *session.Manager
	closers    []io.Closer
}

// openApp 加载配置并初始化日志和存储；fileOnly 时日志不写终端
func openApp(fileOnly bool) (*app, error) {
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, configPath: loader.Path()}
	if err := a.initLogger(fileOnly); err != nil {
		return nil, err
	}
	if loader.Created() {
		a.log.Info("wrote default config to %s", loader.Path())
	}
	a.log.Debug("config: %s", cfg)

	if cfg.Storage.Enabled {
		if err := a.initStorage(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) initLogger(fileOnly bool) error {
	level, err := logger.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = logger.DEBUG
	}

	var out io.Writer = os.Stderr
	if path := a.cfg.LogPath(); path != "" {
		f, err := logger.OpenFile(path)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
		if !fileOnly && verbose {
			out = io.MultiWriter(f, os.Stderr)
		}
	} else if fileOnly {
		out = io.Discard
	}

	logger.SetLevel(level)
	logger.SetOutput(out, out)
	a.log = logger.Default().With("seekchat")
	return nil
}

func (a *app) initStorage() error {
	enc, err := storage.EncryptorFromBase64(a.cfg.Storage.EncryptionKey)
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}

	var opts []storage.Option
	if enc != nil {
		opts = append(opts, storage.WithEncryptor(enc))
	}
	store, err := storage.NewSQLiteStore(a.cfg.Storage.DataDir, opts...)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, store)

	a.sessions, err = session.NewManager(store, a.log.With("session"))
	return err
}

// openSession 恢复或新建会话；存储关闭时只能新建
func (a *app) openSession(ctx context.Context, resumeID string) (*session.Session, error) {
	model, err := deepseek.ParseModel(a.cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	if a.sessions == nil {
		if resumeID != "" {
			return nil, fmt.Errorf("cannot resume %s: storage is disabled", resumeID)
		}
		return session.LoadOrSeed(a.cfg.DialogPath(), model)
	}
	return a.sessions.Open(ctx, resumeID, a.cfg.DialogPath(), model)
}

// newProvider 按配置创建 API 客户端，model 为空时使用配置中的模型
func (a *app) newProvider(model deepseek.Model) *deepseek.Provider {
	if model == "" {
		model = deepseek.Model(a.cfg.LLM.Model)
	}
	return deepseek.NewProvider(a.cfg.LLM.APIKey, model,
		deepseek.WithEndpoint(a.cfg.LLM.Endpoint),
		deepseek.WithResponseTimeout(a.cfg.LLM.ResponseTimeout),
		deepseek.WithLogger(a.log.With("deepseek")),
	)
}

// Close 按打开的相反顺序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}
