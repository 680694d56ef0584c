package domain

// MealsPerFreeMeal is the punch-card size: every 6th meal earns a free one.
const MealsPerFreeMeal = 6

// MealsUntilFree returns how many more meals are needed for the next free
// meal. Within the first card this is 6 - meals.
func MealsUntilFree(meals int) int {
	if meals < 0 {
		meals = 0
	}
	return MealsPerFreeMeal - meals%MealsPerFreeMeal
}

// CardProgress returns the number of punches on the current card.
func CardProgress(meals int) int {
	if meals < 0 {
		return 0
	}
	return meals % MealsPerFreeMeal
}

// EarnsFreeMeal reports whether reaching meals completes a card.
func EarnsFreeMeal(meals int) bool {
	return meals > 0 && meals%MealsPerFreeMeal == 0
}
