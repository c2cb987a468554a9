package config

import "os"

func IsDebug() bool {
	return os.Getenv("TASKER_DEBUG") == "1"
}
