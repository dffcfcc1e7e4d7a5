package helpers

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		want       logrus.Level
		json       bool
	}{
		{"development", "", logrus.DebugLevel, false},
		{"production", "", logrus.InfoLevel, true},
		{"production", "warn", logrus.WarnLevel, true},
		{"staging", "loud", logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l := NewLogger("billing", tt.env, tt.level)
			if l.GetLevel() != tt.want {
				t.Errorf("level = %s, want %s", l.GetLevel(), tt.want)
			}
			if _, ok := l.Formatter.(*logrus.JSONFormatter); ok != tt.json {
				t.Errorf("json formatter = %v, want %v", ok, tt.json)
			}
		})
	}
}
