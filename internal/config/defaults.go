package config

const (
	defaultVideosDir      = "~/.local/share/timelapse/videos"
	defaultLogDir         = "~/.local/share/timelapse/logs"
	defaultCatalogPath    = "~/.local/share/timelapse/catalog.db"
	defaultDriveBaseURL   = "https://www.googleapis.com/drive/v3"
	defaultFolderPrefix   = "TLST04A00879_"
	defaultItemPrefix     = "TLS_"
	defaultVideoFPS       = 30
	defaultVideoCodec     = "libx264"
	defaultVideoPreset    = "slow"
	defaultVideoCRF       = 28
	defaultVideoMaxWidth  = 1920
	defaultFullCRF        = 32
	defaultFullMaxWidth   = 1280
	defaultFullFPS        = 20
	defaultDownloadWorker = 10
	defaultRetentionDays  = 30
	defaultFreeSpaceFloor = 0.10
	defaultNtfyTimeout    = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultRemoteRegion   = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Source: Source{
			FolderPrefix: defaultFolderPrefix,
			ItemPrefix:   defaultItemPrefix,
			BaseURL:      defaultDriveBaseURL,
		},
		Paths: Paths{
			VideosDir:   defaultVideosDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Remote: Remote{
			Enabled: true,
			Region:  defaultRemoteRegion,
		},
		Video: Video{
			FPS:      defaultVideoFPS,
			Codec:    defaultVideoCodec,
			Preset:   defaultVideoPreset,
			CRF:      defaultVideoCRF,
			MaxWidth: defaultVideoMaxWidth,
			Full: FullVideo{
				CRF:      defaultFullCRF,
				MaxWidth: defaultFullMaxWidth,
				FPS:      defaultFullFPS,
			},
		},
		Download: Download{
			Workers: defaultDownloadWorker,
		},
		Retention: Retention{
			Enabled:        true,
			Days:           defaultRetentionDays,
			FreeSpaceFloor: defaultFreeSpaceFloor,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			OnSuccess:      false,
			OnFailure:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
