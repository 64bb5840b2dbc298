package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "serve":
		return serveTemplate, nil
	case "cli":
		return cliTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serveTemplate = `name = "g2ctl"
addr = ":9200"
cors_origins = ["http://localhost:3000"]
dump_dir = ""

[[patches]]
name = "init"
path = "patches/init.pch2"

[[performances]]
name = "stage"
path = "performances/stage.prf2"
`

const cliTemplate = `log_level = "info"
dump_dir = ""
task_timeout = "10s"
request_timeout = "5s"
queue_depth = 64
listen_addr = ":9200"
cors_origins = ["http://localhost:3000"]
`
