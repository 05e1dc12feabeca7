package core

// IconSpec names the glyph shown for a category icon key.
type IconSpec struct {
	Key   string `json:"key"`
	Glyph string `json:"glyph"`
	Label string `json:"label"`
}

// IconCatalog lists the icon keys a category may use.
var IconCatalog = []IconSpec{
	{"FaTag", "🏷️", "Tag"},
	{"FaShoppingCart", "🛒", "Shopping cart"},
	{"FaUtensils", "🍴", "Dining"},
	{"FaHome", "🏠", "Home"},
	{"FaCar", "🚗", "Car"},
	{"FaBus", "🚌", "Transit"},
	{"FaPlane", "✈️", "Travel"},
	{"FaHeartbeat", "❤️", "Health"},
	{"FaGraduationCap", "🎓", "Education"},
	{"FaFilm", "🎬", "Entertainment"},
	{"FaBolt", "⚡", "Utilities"},
	{"FaWifi", "📶", "Internet"},
	{"FaMobileAlt", "📱", "Phone"},
	{"FaTshirt", "👕", "Clothing"},
	{"FaGift", "🎁", "Gifts"},
	{"FaPaw", "🐾", "Pets"},
	{"FaChild", "🧒", "Kids"},
	{"FaDumbbell", "🏋️", "Fitness"},
	{"FaPiggyBank", "🐷", "Savings"},
	{"FaChartLine", "📈", "Investments"},
	{"FaMoneyBillWave", "💵", "Salary"},
	{"FaBriefcase", "💼", "Business"},
	{"FaUniversity", "🏫", "Taxes"},
	{"FaShieldAlt", "🛡️", "Insurance"},
	{"FaHandHoldingHeart", "🤲", "Charity"},
	{"FaLandmark", "🏛️", "Landmark"},
	{"FaTv", "📺", "Subscriptions"},
	{"FaTools", "🧰", "Tools"},
	{"FaWrench", "🔧", "Repairs"},
	{"FaCalendarAlt", "📅", "Calendar"},
	{"FaBirthdayCake", "🎂", "Celebrations"},
	{"FaEllipsisH", "…", "Other"},
}

var iconIndex = func() map[string]IconSpec {
	m := make(map[string]IconSpec, len(IconCatalog))
	for _, ic := range IconCatalog {
		m[ic.Key] = ic
	}
	return m
}()

// Icon resolves key to its glyph. Unknown keys render as an empty string.
func Icon(key string) string {
	return iconIndex[key].Glyph
}

// KnownIcon reports whether key is in the catalog.
func KnownIcon(key string) bool {
	_, ok := iconIndex[key]
	return ok
}
