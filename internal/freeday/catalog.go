package freeday

// MealOption is one choice on the pre-event meal selector.
type MealOption struct {
	Value MealIntensity `json:"value"`
	Label string        `json:"label"`
	Kcal  int           `json:"kcal"`
}

// QualityOption is one choice on the week-quality selector.
type QualityOption struct {
	Value      WeekQuality `json:"value"`
	Title      string      `json:"title"`
	Multiplier float64     `json:"multiplier"`
}

// Catalog is everything a client needs to render the free-day log.
type Catalog struct {
	MealOptions    []MealOption    `json:"meal_options"`
	FoodItems      []FoodItem      `json:"food_items"`
	QualityOptions []QualityOption `json:"quality_options"`
	Emotions       []string        `json:"emotions"`
}

var defaultFoodItems = []FoodItem{
	{Name: "Beer can 350ml", KcalEach: 150},
	{Name: "Long neck 330ml", KcalEach: 140},
	{Name: "Draft beer 300ml", KcalEach: 120},
	{Name: "Pizza slice", KcalEach: 300},
	{Name: "Medium sandwich", KcalEach: 600},
	{Name: "Fried side portion", KcalEach: 350},
	{Name: "Medium dessert", KcalEach: 400},
}

// DefaultCatalog returns a fresh copy of the built-in catalog. Callers may
// mutate the result.
func DefaultCatalog() Catalog {
	items := make([]FoodItem, len(defaultFoodItems))
	copy(items, defaultFoodItems)
	return Catalog{
		MealOptions: []MealOption{
			{Value: MealNotConsumed, Label: "Did not eat", Kcal: MealNotConsumed.Kcal()},
			{Value: MealLight, Label: "Same as routine", Kcal: MealLight.Kcal()},
			{Value: MealModerate, Label: "A bit more", Kcal: MealModerate.Kcal()},
			{Value: MealHigh, Label: "Well above normal", Kcal: MealHigh.Kcal()},
		},
		FoodItems: items,
		QualityOptions: []QualityOption{
			{Value: QualityFollowed, Title: "Followed the plan", Multiplier: QualityFollowed.Multiplier()},
			{Value: QualitySmallDeviations, Title: "Small deviations", Multiplier: QualitySmallDeviations.Multiplier()},
			{Value: QualityLostControl, Title: "Lost control on several days", Multiplier: QualityLostControl.Multiplier()},
		},
		Emotions: []string{"Satisfied", "Overdid it", "Felt guilty", "Worth it"},
	}
}

// NewMealsData is a blank log seeded with the default food counters at zero.
func NewMealsData() MealsData {
	return MealsData{
		Breakfast:    MealNotConsumed,
		Lunch:        MealNotConsumed,
		DinnerBefore: MealNotConsumed,
		Items:        DefaultCatalog().FoodItems,
	}
}
