package cmd

import (
	"bili-downloader/app/config"
	"bili-downloader/app/database"
	"bili-downloader/app/logger"
	"bili-downloader/app/service"
	"encoding/json"
	"io"
)

// cliApp 命令行工具共用的服务
type cliApp struct {
	cfg      *config.Config
	log      *logger.Logger
	settings *service.SettingsService
	queue    *service.DownloadQueueService
	resolve  *service.ResolveService
}

func newCLIApp() (*cliApp, error) {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	if err := database.InitStore(cfg, log); err != nil {
		log.Close()
		return nil, err
	}

	db := database.GetDB()
	app := &cliApp{
		cfg:      cfg,
		log:      log,
		settings: service.NewSettingsService(db, log),
		queue:    service.NewDownloadQueueService(db, log),
	}
	resolve, err := service.NewResolveService(cfg, app.settings, app.queue, log)
	if err != nil {
		database.Close()
		log.Close()
		return nil, err
	}
	app.resolve = resolve
	return app, nil
}

func (a *cliApp) Close() {
	a.resolve.Close()
	database.Close()
	a.log.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
