package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger routes gorm output through the process logger and only
// reports failed or slow statements.
type queryLogger struct {
	level gormlogger.LogLevel
}

func newQueryLogger() gormlogger.Interface {
	return &queryLogger{level: gormlogger.Warn}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		log.Printf("[e-class:postgres] "+msg, data...)
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		log.Printf("[e-class:postgres] warn: "+msg, data...)
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		log.Printf("[e-class:postgres] error: "+msg, data...)
	}
}

func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		query, rows := fc()
		log.Printf("[e-class:postgres] error: %s | %v | %s | %d rows | %s", utils.FileWithLineNum(), err, elapsed, rows, query)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		query, rows := fc()
		log.Printf("[e-class:postgres] warn: slow query %s | %s | %d rows | %s", utils.FileWithLineNum(), elapsed, rows, query)
	}
}
