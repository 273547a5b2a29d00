package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeRedis is an in-memory RedisClient.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

type redisCmd struct {
	val []byte
	err error
}

func (c redisCmd) Err() error              { return c.err }
func (c redisCmd) Bytes() ([]byte, error) { return c.val, c.err }

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = append([]byte(nil), value.([]byte)...)
	f.ttls[key] = expiration
	return redisCmd{}
}

func (f *fakeRedis) Get(ctx context.Context, key string) RedisStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redisCmd{err: ErrRedisNil}
	}
	return redisCmd{val: v}
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) RedisIntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redisCmd{}
}

func TestRedis(t *testing.T) {
	exerciseBackend(t, NewRedis(newFakeRedis()))
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	client := newFakeRedis()
	r := NewRedis(client, WithRedisPrefix("app:"), WithRedisTTL(time.Hour))

	if err := r.Set(context.Background(), "snap", []byte("x")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok := client.data["app:snap"]; !ok {
		t.Fatalf("key not prefixed, have %v", client.data)
	}
	if client.ttls["app:snap"] != time.Hour {
		t.Fatalf("ttl = %v, want 1h", client.ttls["app:snap"])
	}
	if r.Prefix() != "app:" {
		t.Fatalf("Prefix() = %q", r.Prefix())
	}
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	exerciseBackend(t, NewS3(newFakeS3(), "bucket", "rstore/"))
}

func TestS3_KeyLayout(t *testing.T) {
	client := newFakeS3()
	s := NewS3(client, "bucket", "prefix/")

	if err := s.Set(context.Background(), "snap", []byte("{}")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok := client.objects["bucket/prefix/snap"]; !ok {
		t.Fatalf("object not stored under bucket/prefix/snap: %v", client.objects)
	}
}

func TestS3_BackendErrorPropagates(t *testing.T) {
	client := newFakeS3()
	boom := errors.New("boom")
	client.getErr = boom

	_, err := NewS3(client, "bucket", "").Get(context.Background(), "snap")
	if !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want boom", err)
	}
}
