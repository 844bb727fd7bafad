package transaction

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		basePath string
		storage  *LocalStorage
	)

	BeforeEach(func() {
		basePath = filepath.Join(GinkgoT().TempDir(), "uploads")
		var err error
		storage, err = NewLocalStorage(basePath)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save and Get", func() {
		It("round-trips file data", func() {
			path, err := storage.Save("receipt.jpg", []byte("image data"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("image data")))
		})
	})

	Describe("Path", func() {
		It("returns the absolute location of a stored file", func() {
			path, err := storage.Save("receipt.jpg", []byte("image data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Path(path)).To(Equal(filepath.Join(basePath, "receipt.jpg")))
		})
	})

	Describe("Delete", func() {
		It("removes a stored file", func() {
			path, err := storage.Save("receipt.jpg", []byte("image data"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete(path)).NotTo(HaveOccurred())
			_, err = storage.Get(path)
			Expect(err).To(HaveOccurred())
		})

		It("errors for a missing file", func() {
			Expect(storage.Delete("missing.jpg")).To(HaveOccurred())
		})
	})
})

var _ = Describe("SanitizeFilename", func() {
	DescribeTable("sanitization",
		func(input, expected string) {
			Expect(SanitizeFilename(input)).To(Equal(expected))
		},
		Entry("clean name", "receipt.jpg", "receipt.jpg"),
		Entry("special characters", "чек#1(копия).pdf", "1.pdf"),
		Entry("collapsed spaces", "my   receipt.png", "my receipt.png"),
		Entry("empty base", "///.pdf", "receipt.pdf"),
	)

	It("truncates long names", func() {
		long := ""
		for i := 0; i < 80; i++ {
			long += "a"
		}
		Expect(SanitizeFilename(long + ".jpg")).To(HaveLen(50 + len(".jpg")))
	})
})
