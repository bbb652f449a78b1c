package config

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorCyan        = 96
	colorLightYellow = 93
	colorLightGreen  = 92
)

// GbFormatter renders single-line colored key=value entries with fields in
// stable alphabetical order.
type GbFormatter struct{}

func (f *GbFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(colored(colorCyan, "level"))
	b.WriteByte('=')
	b.WriteString(colored(levelColor(entry.Level), strings.ToUpper(entry.Level.String())[:4]))

	b.WriteByte(' ')
	b.WriteString(colored(colorCyan, "ts"))
	b.WriteByte('=')
	b.WriteString(colored(colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000")))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(colored(colorCyan, k))
		b.WriteByte('=')
		b.WriteString(colored(colorLightYellow, fmt.Sprintf("%q", fmt.Sprint(entry.Data[k]))))
	}

	b.WriteByte(' ')
	b.WriteString(colored(colorCyan, "msg"))
	b.WriteByte('=')
	b.WriteString(colored(colorLightGreen, fmt.Sprintf("%q", entry.Message)))

	line := strings.NewReplacer("\r", "\\r", "\n", "\\n").Replace(b.String())
	return []byte(line + "\n"), nil
}

func colored(color int, s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}

func levelColor(level log.Level) int {
	switch level {
	case log.TraceLevel, log.DebugLevel:
		return colorGray
	case log.InfoLevel:
		return colorBlue
	case log.WarnLevel:
		return colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return colorRed
	}
	return colorBlue
}
