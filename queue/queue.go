/*
	Durable work queue decoupling uploads from thumbnail generation.

	Jobs are JSON blobs on a Redis list. Consumers move a job to a
	processing list while they work on it and remove it on Ack, so a
	consumer crash leaves the job parked instead of lost. Delivery is
	at-least-once; consumers must tolerate duplicates.
*/
package queue

import (
	"encoding/json"
	"time"

	"github.com/noisersup/filestore-api/models"

	"github.com/gomodule/redigo/redis"
)

const (
	queueKey      = "thumbnails"
	processingKey = "thumbnails:processing"
)

// Pool is the slice of redigo's *redis.Pool the queue needs.
type Pool interface {
	Get() redis.Conn
}

type Queue struct {
	cache Pool
}

func NewQueue(cache Pool) *Queue {
	return &Queue{cache: cache}
}

// Enqueue pushes a job onto the queue. Callers only enqueue after the
// metadata record exists, so a job never refers to a record that was
// never committed.
func (q *Queue) Enqueue(job models.DerivativeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	conn := q.cache.Get()
	defer conn.Close()

	_, err = conn.Do("LPUSH", queueKey, payload)
	return err
}

// Dequeue blocks up to timeout for a job and parks it on the processing
// list. A timeout is not an error: it returns an empty payload and a nil
// job. A payload that fails to decode is still returned so the caller can
// Ack (drop) it.
func (q *Queue) Dequeue(timeout time.Duration) (string, *models.DerivativeJob, error) {
	conn := q.cache.Get()
	defer conn.Close()

	reply, err := conn.Do("BRPOPLPUSH", queueKey, processingKey, int(timeout.Seconds()))
	if err != nil {
		return "", nil, err
	}
	if reply == nil {
		return "", nil, nil
	}

	payload, err := redis.String(reply, nil)
	if err != nil {
		return "", nil, err
	}

	job := models.DerivativeJob{}
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return payload, nil, err
	}
	return payload, &job, nil
}

// Ack removes a delivered job from the processing list.
func (q *Queue) Ack(payload string) error {
	conn := q.cache.Get()
	defer conn.Close()

	_, err := conn.Do("LREM", processingKey, 1, payload)
	return err
}

func (q *Queue) Alive() bool {
	conn := q.cache.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err == nil
}
