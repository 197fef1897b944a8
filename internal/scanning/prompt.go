package scanning

import "fmt"

// promptTemplate is the shared instruction text used by all LLM providers
// for scanning grocery receipts. The two %s verbs are the reference date.
const promptTemplate = `Today's date is %s. You are analyzing a grocery receipt. Carefully read every line item on the receipt and estimate an expiry date for each one based on these shelf-life guidelines:

Fresh Produce:
- Leafy greens: 5-7 days when refrigerated
- Berries: 3-5 days when refrigerated
- Citrus fruits: 2-3 weeks when refrigerated
- Bananas: 5-7 days at room temperature
- Root vegetables: 2-3 weeks when refrigerated
- Fresh herbs: 7-10 days when refrigerated

Dairy Products:
- Milk: 7-10 days after opening
- Yogurt: 1-2 weeks after opening
- Hard cheese: 3-4 weeks after opening
- Soft cheese: 1-2 weeks after opening
- Eggs: 4-5 weeks when refrigerated

Meat and Seafood:
- Fresh fish: 1-2 days when refrigerated
- Ground meat: 1-2 days when refrigerated
- Whole cuts of meat: 3-5 days when refrigerated
- Deli meats: 3-5 days after opening

Pantry Items:
- Bread: 5-7 days at room temperature
- Chips/Crackers: 1-2 weeks after opening
- Cereal: 2-3 months after opening
- Canned goods: 3-5 days after opening when refrigerated

Return ONLY a valid JSON array in this exact format:
[
  {
    "code": "the exact item code or line text from the receipt",
    "name": "human readable item name",
    "expiryDate": "YYYY-MM-DD",
    "category": "produce|dairy|meat|pantry|other",
    "storageType": "refrigerated|frozen|room-temperature",
    "notes": "optional storage or handling tips, max 50 characters"
  }
]

Important:
- Use the exact line code from the receipt as the code field
- Cover every line item on the receipt, do not skip any
- If you are unsure about an item, make your best guess rather than omitting it
- The expiryDate must be in YYYY-MM-DD format
- Base all expiry dates on today's date (%s) as the purchase date
- Do not include any text before or after the JSON array
- Do not use markdown code blocks`

// BuildPrompt returns the model instruction text for a reference date.
// Identical refDate values produce byte-identical prompts.
func BuildPrompt(refDate string) string {
	return fmt.Sprintf(promptTemplate, refDate, refDate)
}
