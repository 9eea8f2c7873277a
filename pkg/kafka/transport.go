package kafka

import (
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// transportLoggers builds the loggers kafka-go's internals write to.
// Application logging stays on ectologger; the transport chatter is
// printf-style and high volume, so it goes through zap instead.
func transportLoggers(debug bool) (kafka.LoggerFunc, kafka.LoggerFunc) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, nil
	}
	sugar := zl.Sugar().Named("kafka")

	errorLog := kafka.LoggerFunc(sugar.Errorf)
	if !debug {
		return nil, errorLog
	}
	return kafka.LoggerFunc(sugar.Debugf), errorLog
}
