package cloudwriter_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisdamba/mealplanner/internal/cloudwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key string
	body        []byte
	calls       int
	err         error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3WriterUploadsOnClose(t *testing.T) {
	client := &fakeS3{}
	w, err := cloudwriter.NewS3WriterFactoryWith(client).NewWriter("plans-bucket", "plans/a.parquet")
	require.NoError(t, err)

	_, err = w.Write([]byte("PAR1"))
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 0, client.calls)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "plans-bucket", client.bucket)
	assert.Equal(t, "plans/a.parquet", client.key)
	assert.Equal(t, "PAR1data", string(client.body))

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestS3WriterUploadError(t *testing.T) {
	boom := errors.New("boom")
	w, err := cloudwriter.NewS3WriterFactoryWith(&fakeS3{err: boom}).NewWriter("b", "k")
	require.NoError(t, err)
	assert.ErrorIs(t, w.Close(), boom)
}

func TestS3WriterNeedsBucket(t *testing.T) {
	_, err := cloudwriter.NewS3WriterFactoryWith(&fakeS3{}).NewWriter("", "k")
	assert.Error(t, err)
}
