package artifact

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemoryDriver", func() {
	var driver *MemoryDriver

	BeforeEach(func() {
		driver = NewMemoryDriver()
	})

	It("round-trips a payload", func() {
		id, err := driver.Put([]byte("audio bytes"))
		Expect(err).ToNot(HaveOccurred())
		Expect(id).ToNot(BeEmpty())

		data, err := driver.Get(id)
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("audio bytes")))
	})

	It("assigns distinct ids to distinct payloads", func() {
		a, err := driver.Put([]byte("a"))
		Expect(err).ToNot(HaveOccurred())
		b, err := driver.Put([]byte("b"))
		Expect(err).ToNot(HaveOccurred())
		Expect(a).ToNot(Equal(b))
	})

	It("stores a copy, not the caller's slice", func() {
		payload := []byte("original")
		id, err := driver.Put(payload)
		Expect(err).ToNot(HaveOccurred())

		payload[0] = 'X'
		data, err := driver.Get(id)
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("original")))
	})

	It("reports unknown ids as not found", func() {
		_, err := driver.Get("no-such-artifact")
		var notFound ErrNotFound
		Expect(errors.As(err, &notFound)).To(BeTrue())
		Expect(notFound.ID).To(Equal("no-such-artifact"))
	})

	Describe("Reap", func() {
		var base time.Time

		BeforeEach(func() {
			base = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		})

		putAt := func(t time.Time) string {
			driver.now = func() time.Time { return t }
			id, err := driver.Put([]byte("x"))
			Expect(err).ToNot(HaveOccurred())
			return id
		}

		It("removes only entries created before the cutoff", func() {
			old := putAt(base)
			fresh := putAt(base.Add(2 * time.Hour))

			removed, err := driver.Reap(base.Add(time.Hour))
			Expect(err).ToNot(HaveOccurred())
			Expect(removed).To(Equal(1))

			_, err = driver.Get(old)
			Expect(err).To(HaveOccurred())
			_, err = driver.Get(fresh)
			Expect(err).ToNot(HaveOccurred())
		})

		It("keeps an entry one second inside the retention window", func() {
			id := putAt(base)

			// Sweeping at base+59m59s with 1h retention: cutoff is before
			// the entry's creation, so it survives.
			removed, err := driver.Reap(base.Add(59*time.Minute + 59*time.Second).Add(-time.Hour))
			Expect(err).ToNot(HaveOccurred())
			Expect(removed).To(Equal(0))

			_, err = driver.Get(id)
			Expect(err).ToNot(HaveOccurred())
		})

		It("removes an entry one second past the retention window", func() {
			id := putAt(base)

			removed, err := driver.Reap(base.Add(time.Hour + time.Second).Add(-time.Hour))
			Expect(err).ToNot(HaveOccurred())
			Expect(removed).To(Equal(1))

			_, err = driver.Get(id)
			Expect(err).To(HaveOccurred())
		})
	})
})
