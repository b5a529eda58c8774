package main

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	AuthURL     string `env:"AUTH_URL,required=true"`
	UsersURL    string `env:"USERS_URL,required=true"`
	MessagesURL string `env:"MESSAGES_URL,required=true"`

	Email       string `env:"EMAIL,required=true"`
	Password    string `env:"PASSWORD,required=true"`
	EmailDomain string `env:"EMAIL_DOMAIN,default=corp.local"`

	SyncInterval    time.Duration `env:"SYNC_INTERVAL,default=2s"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=10s"`

	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=8h"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Words splits the comma separated CENSORED_WORDS value, dropping blanks.
func (c Config) Words() []string {
	var out []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
