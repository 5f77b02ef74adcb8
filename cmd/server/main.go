package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/playbind/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8090,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	sourceURL = configVar[string]{
		envKey:       "PLAYER_SOURCE_URL",
		flagKey:      "source-url",
		defaultValue: "",
	}
	startAt = configVar[float64]{
		envKey:       "PLAYER_START_AT",
		flagKey:      "start-at",
		defaultValue: 0,
	}
	playing = configVar[bool]{
		envKey:       "PLAYER_PLAYING",
		flagKey:      "playing",
		defaultValue: true,
	}
	muted = configVar[bool]{
		envKey:       "PLAYER_MUTED",
		flagKey:      "muted",
		defaultValue: false,
	}
	loop = configVar[bool]{
		envKey:       "PLAYER_LOOP",
		flagKey:      "loop",
		defaultValue: false,
	}
	resizeMode = configVar[string]{
		envKey:       "PLAYER_RESIZE_MODE",
		flagKey:      "resize-mode",
		defaultValue: "aspect-fit",
	}
	showControls = configVar[bool]{
		envKey:       "PLAYER_SHOW_CONTROLS",
		flagKey:      "show-controls",
		defaultValue: true,
	}
	pictureInPicture = configVar[bool]{
		envKey:       "PLAYER_PIP",
		flagKey:      "pip",
		defaultValue: false,
	}
	mpvPath = configVar[string]{
		envKey:       "PLAYER_MPV_PATH",
		flagKey:      "mpv-path",
		defaultValue: "mpv",
	}
	mpvSocketDir = configVar[string]{
		envKey:       "PLAYER_MPV_SOCKET_DIR",
		flagKey:      "mpv-socket-dir",
		defaultValue: "",
	}
	resume = configVar[bool]{
		envKey:       "PLAYER_RESUME",
		flagKey:      "resume",
		defaultValue: false,
	}
	saveInterval = configVar[int]{
		envKey:       "PLAYER_SAVE_INTERVAL",
		flagKey:      "save-interval",
		defaultValue: 5,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(sourceURL.flagKey, sourceURL.defaultValue, "Media source URL to play")
	pflag.Float64(startAt.flagKey, startAt.defaultValue, "Initial playback offset in seconds")
	pflag.Bool(playing.flagKey, playing.defaultValue, "Start playing immediately")
	pflag.Bool(muted.flagKey, muted.defaultValue, "Start muted")
	pflag.Bool(loop.flagKey, loop.defaultValue, "Loop playback at end of media")
	pflag.String(resizeMode.flagKey, resizeMode.defaultValue, "Resize mode: aspect-fit, stretch or aspect-fill")
	pflag.Bool(showControls.flagKey, showControls.defaultValue, "Show the player's on-screen controls")
	pflag.Bool(pictureInPicture.flagKey, pictureInPicture.defaultValue, "Allow picture-in-picture presentation")
	pflag.String(mpvPath.flagKey, mpvPath.defaultValue, "Path to the mpv binary")
	pflag.String(mpvSocketDir.flagKey, mpvSocketDir.defaultValue, "Directory for mpv IPC sockets")
	pflag.Bool(resume.flagKey, resume.defaultValue, "Persist playback position and resume on reload")
	pflag.Int(saveInterval.flagKey, saveInterval.defaultValue, "Seconds between position saves")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(sourceURL.flagKey, sourceURL.envKey)
	viper.BindEnv(startAt.flagKey, startAt.envKey)
	viper.BindEnv(playing.flagKey, playing.envKey)
	viper.BindEnv(muted.flagKey, muted.envKey)
	viper.BindEnv(loop.flagKey, loop.envKey)
	viper.BindEnv(resizeMode.flagKey, resizeMode.envKey)
	viper.BindEnv(showControls.flagKey, showControls.envKey)
	viper.BindEnv(pictureInPicture.flagKey, pictureInPicture.envKey)
	viper.BindEnv(mpvPath.flagKey, mpvPath.envKey)
	viper.BindEnv(mpvSocketDir.flagKey, mpvSocketDir.envKey)
	viper.BindEnv(resume.flagKey, resume.envKey)
	viper.BindEnv(saveInterval.flagKey, saveInterval.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	config := &app.AppConfig{
		Host:                viper.GetString(host.flagKey),
		Port:                viper.GetInt(port.flagKey),
		LogLevel:            viper.GetString(logLevel.flagKey),
		SourceURL:           viper.GetString(sourceURL.flagKey),
		StartAtSeconds:      viper.GetFloat64(startAt.flagKey),
		PlayingInitially:    viper.GetBool(playing.flagKey),
		MutedInitially:      viper.GetBool(muted.flagKey),
		Loop:                viper.GetBool(loop.flagKey),
		ResizeMode:          viper.GetString(resizeMode.flagKey),
		ShowControls:        viper.GetBool(showControls.flagKey),
		PictureInPicture:    viper.GetBool(pictureInPicture.flagKey),
		MPVPath:             viper.GetString(mpvPath.flagKey),
		MPVSocketDir:        viper.GetString(mpvSocketDir.flagKey),
		ResumeEnabled:       viper.GetBool(resume.flagKey),
		SaveIntervalSeconds: viper.GetInt(saveInterval.flagKey),
		RedisPort:           viper.GetInt(redisPort.flagKey),
		RedisHost:           viper.GetString(redisHost.flagKey),
		RedisPassword:       viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
