package core

// CategorySeed is a category without identity or position.
type CategorySeed struct {
	Name  string
	Icon  string
	Color string
}

// DefaultCategories is installed, in this order, into an empty registry.
var DefaultCategories = []CategorySeed{
	// Essentials
	{"Housing", "FaHome", "#4caf50"},
	{"Utilities", "FaBolt", "#ffeb3b"},
	{"Groceries", "FaShoppingCart", "#8bc34a"},
	{"Transport", "FaCar", "#2196f3"},
	{"Insurance", "FaShieldAlt", "#9c27b0"},
	{"Healthcare", "FaHeartbeat", "#e91e63"},

	// Financial goals
	{"Savings", "FaPiggyBank", "#ffc107"},
	{"Debt", "FaMoneyBillWave", "#795548"},
	{"Retirement", "FaLandmark", "#00bcd4"},
	{"Investments", "FaChartLine", "#3f51b5"},

	// Wants
	{"Dining Out", "FaUtensils", "#ff5722"},
	{"Subscriptions", "FaTv", "#673ab7"},
	{"Gym & Hobby", "FaDumbbell", "#009688"},
	{"Travel", "FaPlane", "#03a9f4"},
	{"Clothing", "FaTshirt", "#ff9800"},
	{"Gifts", "FaGift", "#e91e63"},

	// Irregular
	{"Auto Care", "FaTools", "#607d8b"},
	{"Home Services", "FaWrench", "#795548"},
	{"Renewals", "FaCalendarAlt", "#607d8b"},
	{"Holidays", "FaBirthdayCake", "#8e24aa"},
}
