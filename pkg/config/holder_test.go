package config

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

var _ = Describe("Holder", func() {
	var holder *Holder

	BeforeEach(func() {
		holder = NewHolder(NewDefaultRuntime())
	})

	It("serves the seeded configuration", func() {
		snap := holder.Snapshot()
		Expect(snap.Model).To(Equal(NewDefaultRuntime().Model))
	})

	It("applies only the fields the patch names", func() {
		before := holder.Snapshot()

		after := holder.Apply(Patch{
			Model:       strPtr("mistral:7b"),
			Temperature: floatPtr(0.2),
		})

		Expect(after.Model).To(Equal("mistral:7b"))
		Expect(after.Temperature).To(BeNumerically("~", 0.2))
		Expect(after.Endpoint).To(Equal(before.Endpoint))
		Expect(after.Voice).To(Equal(before.Voice))
		Expect(after.MaxAttempts).To(Equal(before.MaxAttempts))
	})

	It("leaves earlier snapshots untouched", func() {
		before := holder.Snapshot()
		holder.Apply(Patch{Model: strPtr("changed")})
		Expect(before.Model).To(Equal(NewDefaultRuntime().Model))
	})

	It("publishes the patched snapshot to later readers", func() {
		holder.Apply(Patch{MaxAttempts: intPtr(5)})
		Expect(holder.Snapshot().MaxAttempts).To(Equal(5))
	})

	It("never hands a reader a torn snapshot under concurrent writes", func() {
		var wg sync.WaitGroup
		stop := make(chan struct{})

		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Voice and rate always change together; a torn read
				// would see one without the other.
				holder.Apply(Patch{
					Voice: strPtr("es-ES-ElviraNeural"),
					Rate:  strPtr("+10%"),
				})
				holder.Apply(Patch{
					Voice: strPtr("es-MX-JorgeNeural"),
					Rate:  strPtr("+0%"),
				})
			}
		}()

		for range 1000 {
			snap := holder.Snapshot()
			switch snap.Voice {
			case "es-ES-ElviraNeural":
				Expect(snap.Rate).To(Equal("+10%"))
			case "es-MX-JorgeNeural":
				Expect(snap.Rate).To(Equal("+0%"))
			default:
				Fail("unexpected voice " + snap.Voice)
			}
		}

		close(stop)
		wg.Wait()
	})
})
