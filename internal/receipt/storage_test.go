package receipt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should write the file and return its name", func() {
			savedPath, err := storage.Save("r1_lunch.jpg", []byte("image"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("r1_lunch.jpg"))
			Expect(filepath.Join(tmpDir, "r1_lunch.jpg")).To(BeAnExistingFile())
		})

		It("should keep files inside the base directory", func() {
			savedPath, err := storage.Save("../escape.jpg", []byte("image"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("escape.jpg"))
			Expect(filepath.Join(tmpDir, "escape.jpg")).To(BeAnExistingFile())
			Expect(filepath.Join(filepath.Dir(tmpDir), "escape.jpg")).NotTo(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("r1_lunch.jpg", []byte("image"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return its contents", func() {
				data, err := storage.Get("r1_lunch.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("image")))
			})
		})

		When("the file does not exist", func() {
			It("should return an error", func() {
				_, err := storage.Get("missing.jpg")
				Expect(err).To(MatchError(ContainSubstring("reading file")))
			})
		})
	})

	Describe("Delete", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("r1_lunch.jpg", []byte("image"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove it", func() {
				Expect(storage.Delete("r1_lunch.jpg")).To(Succeed())
				Expect(filepath.Join(tmpDir, "r1_lunch.jpg")).NotTo(BeAnExistingFile())
			})
		})

		When("the file does not exist", func() {
			It("should return an error", func() {
				Expect(storage.Delete("missing.jpg")).To(MatchError(ContainSubstring("deleting file")))
			})
		})
	})

	Describe("NewLocalStorage", func() {
		It("should create a missing directory", func() {
			storagePath := filepath.Join(GinkgoT().TempDir(), "receipts")
			_, err := NewLocalStorage(storagePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(storagePath).To(BeADirectory())
		})
	})
})

// mockS3 is an in-memory s3API
type mockS3 struct {
	objects map[string][]byte
	err     error
	buckets []string
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.buckets = append(m.buckets, aws.ToString(params.Bucket))
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	delete(m.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

var _ = Describe("S3Storage", func() {
	var (
		client  *mockS3
		storage *S3Storage
	)

	BeforeEach(func() {
		client = newMockS3()
		storage = NewS3StorageWithClient(client, "receipts-bucket", "uploads/")
	})

	It("should upload under the prefix and return the unprefixed name", func() {
		savedPath, err := storage.Save("r1_lunch.jpg", []byte("image"))
		Expect(err).NotTo(HaveOccurred())
		Expect(savedPath).To(Equal("r1_lunch.jpg"))
		Expect(client.objects).To(HaveKeyWithValue("uploads/r1_lunch.jpg", []byte("image")))
		Expect(client.buckets).To(ConsistOf("receipts-bucket"))
	})

	It("should download a saved object", func() {
		_, err := storage.Save("r1_lunch.jpg", []byte("image"))
		Expect(err).NotTo(HaveOccurred())

		data, err := storage.Get("r1_lunch.jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("image")))
	})

	It("should delete an object", func() {
		_, err := storage.Save("r1_lunch.jpg", []byte("image"))
		Expect(err).NotTo(HaveOccurred())

		Expect(storage.Delete("r1_lunch.jpg")).To(Succeed())
		Expect(client.objects).To(BeEmpty())
	})

	When("the bucket is unreachable", func() {
		BeforeEach(func() {
			client.err = errors.New("connection refused")
		})

		It("should wrap the errors", func() {
			_, err := storage.Save("r1_lunch.jpg", []byte("image"))
			Expect(err).To(MatchError(ContainSubstring("uploading file")))

			_, err = storage.Get("r1_lunch.jpg")
			Expect(err).To(MatchError(ContainSubstring("downloading file")))

			Expect(storage.Delete("r1_lunch.jpg")).To(MatchError(ContainSubstring("deleting file")))
		})
	})

	Describe("NewS3Storage", func() {
		It("should require a bucket", func() {
			_, err := NewS3Storage(S3Config{Region: "us-east-1"})
			Expect(err).To(MatchError(ContainSubstring("bucket is required")))
		})
	})
})
