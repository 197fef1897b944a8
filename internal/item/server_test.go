package item

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/freshtrack/freshtrack/internal/notify"
	"github.com/freshtrack/freshtrack/internal/scanning"
)

// recordingMailer captures sends for scheduler-backed handler tests
type recordingMailer struct {
	sent    []string
	sendErr error
}

func (m *recordingMailer) Send(to, subject, html, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

func multipartBody(field, filename string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		service     *Service
		mailer      *recordingMailer
		scheduler   *notify.Scheduler
		auth        BasicAuth
		cronSecret  string
		server      *Server
		ghttpServer *ghttp.Server
	)

	newServer := func() {
		server = NewServerWithMux(service, scheduler, auth, cronSecret, http.NewServeMux())
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = newMockScanner()
		service = NewServiceWithDeps(db, scanner, newMockStorage(),
			&mockIDGenerator{id: "1712"},
			&mockTimeSource{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		)
		mailer = &recordingMailer{}
		scheduler = notify.NewSchedulerWithTime(service, mailer,
			&mockTimeSource{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		)
		auth = BasicAuth{}
		cronSecret = ""
		newServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /api/receipts", func() {
		When("the scan succeeds", func() {
			BeforeEach(func() {
				scanner.items = []scanning.ItemData{
					{Code: "EGGS", ExpiryDate: "2024-03-05", PurchaseDate: "2024-03-01"},
				}
			})

			It("returns the analysis", func() {
				body, contentType := multipartBody("receipt", "receipt.jpg", []byte("image"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var analysis Analysis
				Expect(json.NewDecoder(resp.Body).Decode(&analysis)).To(Succeed())
				Expect(analysis.Items).To(HaveLen(1))
				Expect(analysis.Items[0].Code).To(Equal("EGGS"))
				Expect(analysis.Receipt.ID).To(Equal("1712"))
			})
		})

		When("extraction yields no items", func() {
			BeforeEach(func() {
				scanner.scanErr = fmt.Errorf("extracting items: %w", scanning.ErrEmptyResult)
			})

			It("returns the analyze failure message", func() {
				body, contentType := multipartBody("receipt", "receipt.jpg", []byte("image"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var payload map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
				Expect(payload["error"]).To(Equal("Failed to analyze receipt"))
			})
		})

		When("the model output is unusable", func() {
			BeforeEach(func() {
				scanner.scanErr = fmt.Errorf("extracting items: %w", scanning.ErrNoJSONFound)
			})

			It("returns the invalid format message without model text", func() {
				body, contentType := multipartBody("receipt", "receipt.jpg", []byte("image"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				var payload map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
				Expect(payload["error"]).To(Equal("Invalid response format"))
			})
		})

		When("no file is attached", func() {
			It("returns a bad request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("POST /api/items", func() {
		It("persists the batch for the recipient", func() {
			payload := map[string]any{
				"receipt_id": "1712",
				"email":      "user@example.com",
				"items": []scanning.ItemData{
					{Code: "MILK", ExpiryDate: "2024-03-10", PurchaseDate: "2024-03-01"},
				},
			}
			data, err := json.Marshal(payload)
			Expect(err).NotTo(HaveOccurred())

			resp, err := http.Post(ghttpServer.URL()+"/api/items", "application/json", bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(db.items).To(HaveLen(1))
		})

		It("rejects an invalid body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/items", "application/json", bytes.NewReader([]byte("{")))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/items", func() {
		BeforeEach(func() {
			Expect(db.SaveItem(&Item{
				ID:           "a",
				Name:         "Milk",
				PurchaseDate: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
				ExpiryDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			})).To(Succeed())
		})

		It("returns items with computed freshness", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/items")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var views []map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&views)).To(Succeed())
			Expect(views).To(HaveLen(1))
			Expect(views[0]["status"]).To(Equal("expiring-soon"))
			Expect(views[0]).To(HaveKey("remaining_days"))
		})
	})

	Describe("DELETE /api/items/{id}", func() {
		BeforeEach(func() {
			Expect(db.SaveItem(&Item{ID: "doomed", Code: "MILK"})).To(Succeed())
		})

		It("deletes the item", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/items/doomed", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.items).To(BeEmpty())
		})
	})

	Describe("POST /api/items/shift", func() {
		It("returns the shifted batch", func() {
			payload := map[string]any{
				"purchase_date": "2024-02-01",
				"items": []scanning.ItemData{
					{Code: "MILK", ExpiryDate: "2024-01-08", PurchaseDate: "2024-01-01"},
				},
			}
			data, err := json.Marshal(payload)
			Expect(err).NotTo(HaveOccurred())

			resp, err := http.Post(ghttpServer.URL()+"/api/items/shift", "application/json", bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var shifted []scanning.ItemData
			Expect(json.NewDecoder(resp.Body).Decode(&shifted)).To(Succeed())
			Expect(shifted[0].ExpiryDate).To(Equal("2024-02-08"))
		})
	})

	Describe("POST /api/notifications", func() {
		BeforeEach(func() {
			// Expires exactly on the 3-day horizon from the fixed clock
			Expect(db.SaveItem(&Item{
				ID:         "a",
				Name:       "Milk",
				ExpiryDate: time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC),
				Recipient:  "user@example.com",
			})).To(Succeed())
		})

		When("no cron secret is configured", func() {
			It("runs the scheduler and reports the summary", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/notifications", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var payload struct {
					Success bool              `json:"success"`
					Summary notify.RunSummary `json:"summary"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
				Expect(payload.Success).To(BeTrue())
				Expect(payload.Summary.Delivered).To(Equal(1))
				Expect(mailer.sent).To(Equal([]string{"user@example.com"}))
			})
		})

		When("a cron secret is configured", func() {
			BeforeEach(func() {
				cronSecret = "s3cret"
				newServer()
			})

			It("rejects requests without the bearer token", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/notifications", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(mailer.sent).To(BeEmpty())
			})

			It("accepts requests with the bearer token", func() {
				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/notifications", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Bearer s3cret")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(mailer.sent).To(HaveLen(1))
			})
		})

		When("delivery fails", func() {
			BeforeEach(func() {
				mailer.sendErr = errors.New("smtp down")
			})

			It("still reports run success", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/notifications", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var payload struct {
					Success bool              `json:"success"`
					Summary notify.RunSummary `json:"summary"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
				Expect(payload.Success).To(BeTrue())
				Expect(payload.Summary.Failed).To(Equal(1))
			})
		})

		When("no scheduler is configured", func() {
			BeforeEach(func() {
				scheduler = nil
				newServer()
			})

			It("returns service unavailable", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/notifications", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			})
		})
	})

	Describe("GET /api/time", func() {
		It("returns the server clock", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/time")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var payload map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
			Expect(payload).To(HaveKey("utc"))
			Expect(payload).To(HaveKey("timestamp"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			newServer()
		})

		It("rejects unauthenticated requests", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/items")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/items", nil)
			Expect(err).NotTo(HaveOccurred())
			credentials := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
			req.Header.Set("Authorization", "Basic "+credentials)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			_, readErr := io.ReadAll(resp.Body)
			Expect(readErr).NotTo(HaveOccurred())
		})
	})
})
