package item

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("ComputeStatus", func() {
	var (
		purchase time.Time
		expiry   time.Time
		now      time.Time
		status   Status
	)

	BeforeEach(func() {
		purchase = date(2024, 1, 1)
		expiry = date(2024, 1, 11) // 10 days of shelf life
	})

	JustBeforeEach(func() {
		status = ComputeStatus(purchase, expiry, now)
	})

	When("remaining is -1", func() {
		BeforeEach(func() {
			now = date(2024, 1, 12)
		})

		It("is expired", func() {
			Expect(status).To(Equal(StatusExpired))
		})
	})

	When("remaining is 0", func() {
		BeforeEach(func() {
			now = date(2024, 1, 11)
		})

		It("is expiring soon", func() {
			Expect(status).To(Equal(StatusExpiringSoon))
		})
	})

	When("remaining is 6", func() {
		BeforeEach(func() {
			now = date(2024, 1, 5)
		})

		It("is expiring soon", func() {
			Expect(status).To(Equal(StatusExpiringSoon))
		})
	})

	When("remaining is 7", func() {
		BeforeEach(func() {
			now = date(2024, 1, 4)
		})

		It("is good", func() {
			Expect(status).To(Equal(StatusGood))
		})
	})

	When("now falls mid-day", func() {
		BeforeEach(func() {
			expiry = date(2024, 1, 8)
			now = time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC)
		})

		It("rounds the elapsed partial day up", func() {
			// elapsed ceil = 1, total = 7, remaining = 6
			Expect(status).To(Equal(StatusExpiringSoon))
		})
	})
})

var _ = Describe("RemainingDays", func() {
	It("subtracts elapsed days from total shelf life", func() {
		Expect(RemainingDays(date(2024, 1, 1), date(2024, 1, 11), date(2024, 1, 5))).To(Equal(6))
	})

	It("goes negative once expired", func() {
		Expect(RemainingDays(date(2024, 1, 1), date(2024, 1, 11), date(2024, 1, 12))).To(Equal(-1))
	})
})

var _ = Describe("ShiftPurchaseDate", func() {
	It("preserves the total shelf life across the shift", func() {
		newExpiry := ShiftPurchaseDate(date(2024, 1, 1), date(2024, 1, 8), date(2024, 2, 1))
		Expect(newExpiry).To(Equal(date(2024, 2, 8)))
	})

	It("rounds a partial day to the nearest whole day", func() {
		expiry := time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC) // 7 days 11 hours
		newExpiry := ShiftPurchaseDate(date(2024, 1, 1), expiry, date(2024, 2, 1))
		Expect(newExpiry).To(Equal(date(2024, 2, 8)))
	})
})

var _ = Describe("Item.Shifted", func() {
	It("moves both dates and keeps everything else", func() {
		it := Item{
			Code:         "MILK",
			PurchaseDate: date(2024, 1, 1),
			ExpiryDate:   date(2024, 1, 8),
		}
		shifted := it.Shifted(date(2024, 2, 1))
		Expect(shifted.PurchaseDate).To(Equal(date(2024, 2, 1)))
		Expect(shifted.ExpiryDate).To(Equal(date(2024, 2, 8)))
		Expect(shifted.Code).To(Equal("MILK"))
		// Original is untouched
		Expect(it.PurchaseDate).To(Equal(date(2024, 1, 1)))
	})
})

var _ = Describe("ParseCategory", func() {
	It("accepts the known categories", func() {
		Expect(ParseCategory("produce")).To(Equal(CategoryProduce))
		Expect(ParseCategory("dairy")).To(Equal(CategoryDairy))
		Expect(ParseCategory("meat")).To(Equal(CategoryMeat))
		Expect(ParseCategory("pantry")).To(Equal(CategoryPantry))
	})

	It("maps anything else to other", func() {
		Expect(ParseCategory("charcuterie")).To(Equal(CategoryOther))
		Expect(ParseCategory("")).To(Equal(CategoryOther))
	})
})

var _ = Describe("ParseStorageType", func() {
	It("accepts the known storage types", func() {
		Expect(ParseStorageType("refrigerated")).To(Equal(StorageRefrigerated))
		Expect(ParseStorageType("frozen")).To(Equal(StorageFrozen))
		Expect(ParseStorageType("room-temperature")).To(Equal(StorageRoomTemp))
	})

	It("maps anything else to unknown", func() {
		Expect(ParseStorageType("cellar")).To(Equal(StorageUnknown))
		Expect(ParseStorageType("")).To(Equal(StorageUnknown))
	})
})
