package forwarder

import (
	"context"
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	qdb "github.com/questdb/go-questdb-client/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

const DefaultTable = "can_frames"

type row struct {
	frame enginesim.Frame
	ts    time.Time
}

// QuestDBForwarder stores every frame as a row of a QuestDB table over the
// InfluxDB line protocol.
type QuestDBForwarder struct {
	Config *QuestDBConfig

	sender  qdb.LineSender
	rowChan chan row
}

func NewQuestDBForwarder(ctx context.Context, config *QuestDBConfig) (*QuestDBForwarder, error) {
	opts := []qdb.LineSenderOption{
		qdb.WithHttp(),
		qdb.WithAddress(config.Address),
		qdb.WithAutoFlushInterval(time.Second),
		qdb.WithRetryTimeout(time.Second),
	}
	if config.FlushRows != 0 {
		opts = append(opts, qdb.WithAutoFlushRows(config.FlushRows))
	}
	sender, err := qdb.NewLineSender(ctx, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create QuestDB sender for %s", config.Address)
	}
	table := config.Table
	if table == "" {
		table = DefaultTable
	}
	return &QuestDBForwarder{
		Config:  &QuestDBConfig{Address: config.Address, Table: table, FlushRows: config.FlushRows},
		sender:  sender,
		rowChan: make(chan row, fwdQueueSize*4),
	}, nil
}

func (q *QuestDBForwarder) Forward(f enginesim.Frame) error {
	select {
	case q.rowChan <- row{frame: f, ts: time.Now()}:
	default:
		log.WithField("canID", f.ID).Debug("questdb queue full, dropping frame")
	}
	return nil
}

// Start writes queued rows until ctx is done, then flushes what is left
// and closes the sender.
func (q *QuestDBForwarder) Start(ctx context.Context) error {
	for {
		select {
		case r := <-q.rowChan:
			if err := q.write(ctx, r); err != nil {
				log.WithError(err).Error("unable to write frame to QuestDB")
			}
		case <-ctx.Done():
			q.drain()
			return ctx.Err()
		}
	}
}

func (q *QuestDBForwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for pending := len(q.rowChan); pending > 0; pending-- {
		if err := q.write(ctx, <-q.rowChan); err != nil {
			log.WithError(err).Error("unable to write frame to QuestDB")
		}
	}
	if err := q.sender.Flush(ctx); err != nil {
		log.WithError(err).Error("unable to flush QuestDB rows")
	}
	if err := q.sender.Close(ctx); err != nil {
		log.WithError(err).Warn("unable to close QuestDB sender")
	}
}

func (q *QuestDBForwarder) write(ctx context.Context, r row) error {
	signal := "unknown"
	if s, ok := enginesim.SignalForID(r.frame.ID); ok {
		signal = s.String()
	}
	return q.sender.Table(q.Config.Table).
		Symbol("signal", signal).
		Int64Column("can_id", int64(r.frame.ID)).
		StringColumn("payload", fmt.Sprintf("%X", r.frame.Payload())).
		At(ctx, r.ts)
}
