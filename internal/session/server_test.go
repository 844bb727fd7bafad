package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abenov/tenge-scan/internal/parsing"
	"github.com/abenov/tenge-scan/internal/transaction"
)

// mockStorage is an in-memory transaction.Storage
type mockStorage struct {
	files   map[string][]byte
	saveErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockStorage) Get(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *mockStorage) Path(path string) string {
	return "/storage/" + path
}

func (m *mockStorage) Delete(path string) error {
	delete(m.files, path)
	return nil
}

var _ = Describe("Server", func() {
	var (
		db         *mockDB
		storage    *mockStorage
		extractor  *mockExtractor
		controller *Controller
		server     *Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = &mockExtractor{text: scannedReceiptText}
		controller = NewControllerWithDeps(
			&mockRenderer{rasterPath: "raster.png"},
			extractor,
			db,
			fixedIDGenerator{id: "txn-1"},
			fixedTimeSource{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)},
		)
		server = NewServerWithMux(controller, db, storage, BasicAuth{}, http.NewServeMux())
	})

	Describe("GET /api/scan", func() {
		It("returns the idle state before any scan", func() {
			req := httptest.NewRequest("GET", "/api/scan", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp stateResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.State).To(Equal("idle"))
			Expect(resp.Receipt).To(BeNil())
		})
	})

	Describe("POST /api/scan", func() {
		scanUpload := func(filename, contentType string) *httptest.ResponseRecorder {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			h := textproto.MIMEHeader{}
			h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
			h.Set("Content-Type", contentType)
			part, err := mw.CreatePart(h)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("fake image bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(mw.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/scan", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)
			return w
		}

		It("scans an uploaded photo and returns the result state", func() {
			w := scanUpload("receipt.jpg", "image/jpeg")

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp stateResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.State).To(Equal("result"))
			Expect(resp.Receipt).NotTo(BeNil())
			Expect(resp.Receipt.Merchant).To(Equal("ИП ТЕСТМАГАЗИН"))
			Expect(extractor.calls).To(Equal(1))
		})

		It("retains the original upload in storage", func() {
			scanUpload("receipt.jpg", "image/jpeg")

			Expect(storage.files).To(HaveLen(1))
			for name := range storage.files {
				Expect(name).To(HaveSuffix("_receipt.jpg"))
			}
		})

		It("rejects requests without a file", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			Expect(mw.WriteField("note", "no file here")).To(Succeed())
			Expect(mw.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/scan", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("DELETE /api/scan", func() {
		It("resets the session and returns no content", func() {
			req := httptest.NewRequest("DELETE", "/api/scan", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(controller.State().Kind).To(Equal(Idle))
		})
	})

	Describe("POST /api/transactions", func() {
		It("returns conflict when there is no scan result", func() {
			body := strings.NewReader(`{"category": "food"}`)
			req := httptest.NewRequest("POST", "/api/transactions", body)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("persists the current result with the chosen category", func() {
			_, err := controller.ScanImage(context.Background(), "receipt.jpg")
			Expect(err).NotTo(HaveOccurred())

			body := strings.NewReader(`{"category": "food", "note": "weekly shop"}`)
			req := httptest.NewRequest("POST", "/api/transactions", body)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("txn-1"))

			txn, err := db.GetTransaction("txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Category).To(Equal(parsing.CategoryFood))
			Expect(txn.Note).To(Equal("weekly shop"))
		})

		It("rejects malformed bodies", func() {
			req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader("{not json"))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/transactions", func() {
		It("returns the stored transactions", func() {
			db.transactions["abc"] = &transaction.Transaction{ID: "abc", AmountCents: 450000}

			req := httptest.NewRequest("GET", "/api/transactions", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var txns []*transaction.Transaction
			Expect(json.Unmarshal(w.Body.Bytes(), &txns)).To(Succeed())
			Expect(txns).To(HaveLen(1))
			Expect(txns[0].ID).To(Equal("abc"))
		})
	})

	Describe("GET /api/transactions/{id}", func() {
		It("returns a single transaction", func() {
			db.transactions["abc"] = &transaction.Transaction{ID: "abc", Merchant: "ИП ТЕСТМАГАЗИН"}

			req := httptest.NewRequest("GET", "/api/transactions/abc", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var txn transaction.Transaction
			Expect(json.Unmarshal(w.Body.Bytes(), &txn)).To(Succeed())
			Expect(txn.Merchant).To(Equal("ИП ТЕСТМАГАЗИН"))
		})

		It("returns not found for unknown ids", func() {
			req := httptest.NewRequest("GET", "/api/transactions/missing", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/transactions/{id}", func() {
		It("deletes the transaction", func() {
			db.transactions["abc"] = &transaction.Transaction{ID: "abc"}

			req := httptest.NewRequest("DELETE", "/api/transactions/abc", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(db.transactions).To(BeEmpty())
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			server = NewServerWithMux(controller, db, storage, BasicAuth{
				Username: "admin",
				Password: "secret",
			}, http.NewServeMux())
		})

		It("rejects requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/transactions", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects requests with wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/transactions", nil)
			req.SetBasicAuth("admin", "wrong")
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts requests with correct credentials", func() {
			req := httptest.NewRequest("GET", "/api/transactions", nil)
			req.SetBasicAuth("admin", "secret")
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})
})
