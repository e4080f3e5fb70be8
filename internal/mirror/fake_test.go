package mirror_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"maps"
	"sync"

	"github.com/studio1767/s3mirror/internal/s3io"
)

var errConnReset = errors.New("connection reset by peer")

// fakeStore is the in-memory bucket shared by every handle a fakeConnector
// produces. Failure counters let tests inject transient errors.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]*fakeObject

	failHead int // remaining Head calls to fail
	failPut  int // remaining Put calls to fail
	failPart int // remaining UploadPart calls to fail

	headCalls int
	putCalls  int
	auxKeys   []string // auxiliary uploads in arrival order
	aborted   int
}

type fakeObject struct {
	data         []byte
	etag         string
	metadata     map[string]string
	storageClass string
	contentType  string
	parts        []int32 // part numbers for multipart objects
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string]*fakeObject),
	}
}

func (st *fakeStore) object(key string) *fakeObject {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.objects[key]
}

func (st *fakeStore) put(key string, obj *fakeObject) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.objects[key] = obj
}

func (st *fakeStore) stats() (head, put int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.headCalls, st.putCalls
}

type fakeConnector struct {
	store    *fakeStore
	failures int // remaining Connect calls to fail
	connects int
}

func (cn *fakeConnector) Connect(ctx context.Context) (s3io.Client, error) {
	cn.connects++
	if cn.failures > 0 {
		cn.failures--
		return nil, errConnReset
	}
	return &fakeClient{store: cn.store}, nil
}

type fakeClient struct {
	store *fakeStore
}

func (cl *fakeClient) Head(ctx context.Context, key string) (*s3io.ObjectInfo, error) {
	st := cl.store
	st.mu.Lock()
	defer st.mu.Unlock()

	st.headCalls++
	if st.failHead > 0 {
		st.failHead--
		return nil, errConnReset
	}

	obj, ok := st.objects[key]
	if !ok {
		return nil, s3io.NoSuchObject(key)
	}

	return &s3io.ObjectInfo{
		Key:      key,
		Size:     int64(len(obj.data)),
		ETag:     obj.etag,
		Metadata: maps.Clone(obj.metadata),
	}, nil
}

func (cl *fakeClient) PutMetadata(ctx context.Context, key string, metadata map[string]string) error {
	st := cl.store
	st.mu.Lock()
	defer st.mu.Unlock()

	obj, ok := st.objects[key]
	if !ok {
		return s3io.NoSuchObject(key)
	}
	obj.metadata = maps.Clone(metadata)
	return nil
}

func (cl *fakeClient) Put(ctx context.Context, key string, source io.Reader, opts s3io.PutOptions) (int64, error) {
	st := cl.store

	st.mu.Lock()
	st.putCalls++
	if st.failPut > 0 {
		st.failPut--
		st.mu.Unlock()
		return 0, errConnReset
	}
	st.mu.Unlock()

	data, err := io.ReadAll(source)
	if err != nil {
		return 0, err
	}

	sum := md5.Sum(data)
	st.put(key, &fakeObject{
		data:         data,
		etag:         hex.EncodeToString(sum[:]),
		metadata:     maps.Clone(opts.Metadata),
		storageClass: opts.StorageClass,
		contentType:  opts.ContentType,
	})

	return int64(len(data)), nil
}

func (cl *fakeClient) CreateMultipart(ctx context.Context, key string, opts s3io.PutOptions) (s3io.Multipart, error) {
	return &fakeMultipart{
		store: cl.store,
		key:   key,
		opts:  opts,
	}, nil
}

func (cl *fakeClient) Upload(ctx context.Context, key string, contentType string, source io.Reader) (int64, error) {
	st := cl.store

	data, err := io.ReadAll(source)
	if err != nil {
		return 0, err
	}

	sum := md5.Sum(data)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.auxKeys = append(st.auxKeys, key)
	st.objects[key] = &fakeObject{
		data:        data,
		etag:        hex.EncodeToString(sum[:]),
		contentType: contentType,
	}

	return int64(len(data)), nil
}

type fakeMultipart struct {
	store *fakeStore
	key   string
	opts  s3io.PutOptions

	data  []byte
	parts []int32
}

func (mp *fakeMultipart) UploadPart(ctx context.Context, number int32, data []byte) error {
	st := mp.store
	st.mu.Lock()
	if st.failPart > 0 {
		st.failPart--
		st.mu.Unlock()
		return errConnReset
	}
	st.mu.Unlock()

	mp.data = append(mp.data, data...)
	mp.parts = append(mp.parts, number)
	return nil
}

func (mp *fakeMultipart) Complete(ctx context.Context) error {
	mp.store.put(mp.key, &fakeObject{
		data:         mp.data,
		etag:         "multipart-etag",
		metadata:     maps.Clone(mp.opts.Metadata),
		storageClass: mp.opts.StorageClass,
		parts:        mp.parts,
	})
	return nil
}

func (mp *fakeMultipart) Abort(ctx context.Context) error {
	st := mp.store
	st.mu.Lock()
	defer st.mu.Unlock()
	st.aborted++
	return nil
}
