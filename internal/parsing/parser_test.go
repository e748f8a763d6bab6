package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	var (
		words  []Word
		parser *Parser
		result Result
	)

	BeforeEach(func() {
		parser = NewParser(StrategyUnion)
	})

	JustBeforeEach(func() {
		result = parser.Parse(words)
	})

	When("there are no words", func() {
		BeforeEach(func() {
			words = nil
		})

		It("returns an empty result", func() {
			Expect(result.Items).To(BeEmpty())
			Expect(result.GrandTotal).To(BeZero())
			Expect(result.SharedCost).To(BeZero())
		})
	})

	When("no word has a usable bounding box", func() {
		BeforeEach(func() {
			words = []Word{{Text: "3.50"}, {Text: "Coffee", BoundingBox: []Point{{X: 0.1, Y: 0.1}}}}
		})

		It("treats the document as empty", func() {
			Expect(result.Items).To(BeEmpty())
			Expect(result.GrandTotal).To(BeZero())
		})
	})

	When("the receipt has one item and a total", func() {
		BeforeEach(func() {
			words = rows(
				row("Coffee", "3.50", 0.1),
				row("Total", "3.50", 0.2),
			)
		})

		It("extracts the item", func() {
			Expect(result.Items).To(Equal([]LineItem{{Name: "Coffee", Quantity: 1, UnitPrice: 3.5}}))
		})

		It("reads the grand total", func() {
			Expect(result.GrandTotal).To(BeNumerically("~", 3.5, 1e-9))
		})

		It("has no shared cost", func() {
			Expect(result.SharedCost).To(BeNumerically("~", 0, 1e-9))
			Expect(result.TotalFallback).To(BeFalse())
		})
	})

	When("the receipt has subtotal, tax and grand total rows", func() {
		BeforeEach(func() {
			words = rows(
				[]Word{box("Joe's", descX, 0.02, 0.2), box("Diner", 0.35, 0.02, 0.2)},
				row("Toast", "2.00", 0.10),
				row("Eggs", "3.00", 0.15),
				row("Juice", "4.00", 0.20),
				row("Subtotal", "9.00", 0.25),
				row("Tax", "0.81", 0.30),
				[]Word{box("Grand", descX, 0.35, 0.15), box("Total", 0.3, 0.35, 0.15), price("9.81", 0.35)},
			)
		})

		It("extracts exactly the three items in order", func() {
			Expect(result.Items).To(HaveLen(3))
			Expect(result.Items[0].Name).To(Equal("Toast"))
			Expect(result.Items[1].Name).To(Equal("Eggs"))
			Expect(result.Items[2].Name).To(Equal("Juice"))
		})

		It("uses the grand total rather than the subtotal", func() {
			Expect(result.GrandTotal).To(BeNumerically("~", 9.81, 1e-9))
		})

		It("attributes the difference to shared cost", func() {
			Expect(result.SharedCost).To(BeNumerically("~", 0.81, 1e-9))
		})
	})

	When("descriptions carry quantities", func() {
		BeforeEach(func() {
			words = rows(
				[]Word{box("Burger", descX, 0.10, 0.15), box("x2", 0.3, 0.10, 0.05), price("10.00", 0.10)},
				[]Word{box("2", descX, 0.15, 0.02), box("x", 0.13, 0.15, 0.02), box("Fries", 0.16, 0.15, 0.1), price("6.00", 0.15)},
				[]Word{box("Nachos", descX, 0.20, 0.1), box("(spicy)", 0.22, 0.20, 0.1), box("(3x)", 0.34, 0.20, 0.05), price("12.00", 0.20)},
				row("Total", "28.00", 0.25),
			)
		})

		It("splits name and quantity", func() {
			Expect(result.Items).To(Equal([]LineItem{
				{Name: "Burger", Quantity: 2, UnitPrice: 5},
				{Name: "Fries", Quantity: 2, UnitPrice: 3},
				{Name: "Nachos (spicy)", Quantity: 3, UnitPrice: 4},
			}))
		})

		It("accounts for quantities in the shared cost", func() {
			Expect(result.SharedCost).To(BeNumerically("~", 0, 1e-9))
		})
	})

	When("a trailing number is a store number", func() {
		BeforeEach(func() {
			words = rows(
				row("Store #4821", "7.25", 0.1),
				row("Total", "7.25", 0.15),
			)
		})

		It("keeps the quantity at one", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Quantity).To(Equal(1))
			Expect(result.Items[0].UnitPrice).To(BeNumerically("~", 7.25, 1e-9))
		})
	})

	When("ordinary rows follow the summary", func() {
		BeforeEach(func() {
			words = rows(
				row("Soup", "5.00", 0.10),
				row("Tax", "0.40", 0.15),
				row("Total", "5.40", 0.20),
				row("Visa", "5.40", 0.25),
				row("Change", "0.00", 0.30),
			)
		})

		It("never adds them as items", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Soup"))
		})
	})

	When("a subtotal precedes the grand total", func() {
		BeforeEach(func() {
			words = rows(
				row("Soup", "5.00", 0.10),
				row("Subtotal", "5.00", 0.15),
				row("Amount Due", "5.50", 0.20),
			)
		})

		It("takes the later grand total row", func() {
			Expect(result.GrandTotal).To(BeNumerically("~", 5.5, 1e-9))
			Expect(result.SharedCost).To(BeNumerically("~", 0.5, 1e-9))
		})
	})

	When("two rows qualify as the grand total", func() {
		BeforeEach(func() {
			words = rows(
				row("Soup", "5.00", 0.10),
				row("Total", "5.25", 0.15),
				row("Balance Due", "5.75", 0.20),
			)
		})

		It("keeps the last one", func() {
			Expect(result.GrandTotal).To(BeNumerically("~", 5.75, 1e-9))
		})
	})

	When("only a subtotal is present", func() {
		BeforeEach(func() {
			words = rows(
				row("Soup", "5.00", 0.10),
				row("Subtotal", "5.00", 0.15),
			)
		})

		It("does not treat the subtotal as the grand total", func() {
			Expect(result.TotalFallback).To(BeTrue())
			Expect(result.GrandTotal).To(BeNumerically("~", 5, 1e-9))
		})
	})

	When("no total row is present", func() {
		BeforeEach(func() {
			words = rows(
				[]Word{box("Burger", descX, 0.10, 0.15), box("x2", 0.3, 0.10, 0.05), price("10.00", 0.10)},
				row("Fries", "3.00", 0.15),
			)
		})

		It("falls back to the sum of unit prices", func() {
			Expect(result.TotalFallback).To(BeTrue())
			Expect(result.GrandTotal).To(BeNumerically("~", 8, 1e-9))
			Expect(result.SharedCost).To(BeZero())
		})
	})

	When("the items add up to the total only up to float error", func() {
		BeforeEach(func() {
			words = rows(
				row("Salad", "0.01", 0.10),
				row("Wings 3x", "1.78", 0.15),
				row("Total", "1.79", 0.20),
			)
		})

		It("keeps the detected grand total", func() {
			Expect(result.TotalFallback).To(BeFalse())
			Expect(result.GrandTotal).To(BeNumerically("~", 1.79, 1e-9))
			Expect(result.SharedCost).To(BeZero())
			Expect(result.Items[1]).To(Equal(LineItem{Name: "Wings", Quantity: 3, UnitPrice: 1.78 / 3}))
		})
	})

	When("two items sum to the total in binary with a rounding excess", func() {
		BeforeEach(func() {
			words = rows(
				row("Bread", "1.10", 0.10),
				row("Cheese", "2.20", 0.15),
				row("Total", "3.30", 0.20),
			)
		})

		It("does not fall back", func() {
			Expect(result.TotalFallback).To(BeFalse())
			Expect(result.GrandTotal).To(BeNumerically("~", 3.3, 1e-9))
			Expect(result.SharedCost).To(BeZero())
		})
	})

	When("the total is short by a cent", func() {
		BeforeEach(func() {
			words = rows(
				row("Bread", "1.10", 0.10),
				row("Cheese", "2.20", 0.15),
				row("Total", "3.29", 0.20),
			)
		})

		It("still falls back", func() {
			Expect(result.TotalFallback).To(BeTrue())
			Expect(result.GrandTotal).To(BeNumerically("~", 3.3, 1e-9))
		})
	})

	When("parsing the same words twice", func() {
		BeforeEach(func() {
			words = rows(
				row("Tea", "2.00", 0.20),
				row("Coffee", "3.50", 0.10),
				row("Tip", "1.00", 0.25),
				row("Total", "6.50", 0.30),
			)
		})

		It("returns identical results", func() {
			Expect(parser.Parse(words)).To(Equal(result))
		})

		It("does not reorder the caller's words", func() {
			Expect(words[0].Text).To(Equal("Tea"))
		})

		It("orders items top to bottom", func() {
			Expect(result.Items[0].Name).To(Equal("Coffee"))
			Expect(result.Items[1].Name).To(Equal("Tea"))
		})
	})

	Describe("quantity bounds", func() {
		It("holds for every item", func() {
			for _, ws := range [][]Word{
				rows(row("Pens 500", "5.00", 0.1), row("Cups 0", "1.00", 0.15), row("Total", "6.00", 0.2)),
				rows(row("12 Eggs", "4.80", 0.1), row("Milk (2)", "3.00", 0.15)),
			} {
				for _, it := range Parse(ws).Items {
					Expect(it.Quantity).To(BeNumerically(">=", 1))
					Expect(it.Quantity).To(BeNumerically("<=", 100))
				}
			}
		})
	})
})
