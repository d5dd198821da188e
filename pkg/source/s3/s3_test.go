package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/source"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	gets    []string
	err     error
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, aws.ToString(in.Key))
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3SourceObjectKey(t *testing.T) {
	src := NewS3SourceWithClient("bucket", "graphs", &fakeBucket{})

	assert.Equal(t, "graphs/default/basic.json", src.ObjectKey(source.Request{}))
	assert.Equal(t, "graphs/north/full.json", src.ObjectKey(source.Request{Mode: common.ModeFull, Scope: "north"}))

	noPrefix := NewS3SourceWithClient("bucket", "", &fakeBucket{})
	assert.Equal(t, "default/basic.json", noPrefix.ObjectKey(source.Request{Mode: common.ModeBasic}))
}

func TestS3SourceFetch(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{
		"graphs/north/full.json": `{"stores":[{"store_id":"S1"}],"relations":{"similar_to":[]}}`,
	}}
	src := NewS3SourceWithClient("bucket", "graphs", bucket)

	raw, err := src.Fetch(context.Background(), source.Request{Mode: common.ModeFull, Scope: "north"})
	require.NoError(t, err)
	require.Len(t, raw.Stores, 1)
	assert.Contains(t, raw.Relations, "similar_to")
	assert.Equal(t, []string{"graphs/north/full.json"}, bucket.gets)
}

func TestS3SourceErrors(t *testing.T) {
	src := NewS3SourceWithClient("bucket", "graphs", &fakeBucket{objects: map[string]string{
		"graphs/default/basic.json": `{"stores": 5}`,
	}})

	_, err := src.Fetch(context.Background(), source.Request{Mode: common.ModeFull})
	assert.ErrorIs(t, err, source.ErrNotFound)

	_, err = src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic})
	assert.ErrorIs(t, err, common.ErrInputShape)

	_, err = src.Fetch(context.Background(), source.Request{Scope: "a/b"})
	assert.Error(t, err)

	boom := errors.New("connection reset")
	broken := NewS3SourceWithClient("bucket", "", &fakeBucket{err: boom})
	_, err = broken.Fetch(context.Background(), source.Request{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, source.ErrNotFound)
}
