// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

var avdLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

func (env Env) logger() *slog.Logger {
	if env.Logger != nil {
		return env.Logger
	}
	return avdLogger
}

func baseFields(env Env, fields []any) []any {
	all := []any{"timestamp_ns", time.Now().UTC().UnixNano()}
	if env.CorrelationID != "" {
		all = append(all, "correlation_id", env.CorrelationID)
	}
	return append(all, fields...)
}

func logEvent(env Env, message string, fields ...any) {
	env.logger().Info(message, baseFields(env, fields)...)
}

func logWarn(env Env, message string, fields ...any) {
	env.logger().Warn(message, baseFields(env, fields)...)
}

type lineLogWriter struct {
	env    Env
	fields []any
	buffer []byte
	msg    string
}

func (writer *lineLogWriter) Write(payload []byte) (int, error) {
	writer.buffer = append(writer.buffer, payload...)
	for {
		newlineIndex := bytes.IndexByte(writer.buffer, '\n')
		if newlineIndex == -1 {
			break
		}
		line := strings.TrimSpace(string(writer.buffer[:newlineIndex]))
		writer.buffer = writer.buffer[newlineIndex+1:]
		writer.emit(line)
	}
	return len(payload), nil
}

// Flush logs a trailing line that never saw its newline, such as an unanswered prompt.
func (writer *lineLogWriter) Flush() {
	line := strings.TrimSpace(string(writer.buffer))
	writer.buffer = nil
	writer.emit(line)
}

func (writer *lineLogWriter) emit(line string) {
	if line == "" {
		return
	}
	fields := append(append([]any{}, writer.fields...), "line", line)
	logEvent(writer.env, writer.msg, fields...)
}

func newLineLogWriterWithMessage(env Env, message string, fields ...any) *lineLogWriter {
	return &lineLogWriter{
		env:    env,
		fields: fields,
		msg:    message,
	}
}

func newCommandLogWriter(env Env, command string, args []string, stream string) *lineLogWriter {
	fields := []any{"command", command, "stream", stream}
	if len(args) > 0 {
		fields = append(fields, "args", strings.Join(args, " "))
	}
	return newLineLogWriterWithMessage(env, "command "+stream, fields...)
}

var _ io.Writer = (*lineLogWriter)(nil)
