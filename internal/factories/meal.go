package factories

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/jaswdr/faker"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
)

type dish struct {
	name     string
	calories [2]int
	protein  [2]int
	tags     []models.Tag
}

var (
	vegan  = []models.Tag{models.TagVegan, models.TagVegetarian, models.TagPescatarian}
	veggie = []models.Tag{models.TagVegetarian, models.TagPescatarian}
	fish   = []models.Tag{models.TagPescatarian}
)

func tagsOf(groups ...[]models.Tag) []models.Tag {
	var out []models.Tag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var dishesByCuisine = map[string][]dish{
	"Italian": {
		{"Margherita Pizza", [2]int{650, 900}, [2]int{20, 32}, tagsOf(veggie, []models.Tag{models.TagContainsGluten, models.TagContainsLactose, models.TagContainsDairy, models.TagBaked, models.TagContainsBread})},
		{"Spaghetti Carbonara", [2]int{600, 850}, [2]int{22, 35}, []models.Tag{models.TagContainsGluten, models.TagContainsLactose, models.TagContainsDairy, models.TagContainsGrains}},
		{"Lasagna", [2]int{700, 950}, [2]int{30, 45}, []models.Tag{models.TagContainsGluten, models.TagContainsLactose, models.TagContainsDairy, models.TagBaked}},
		{"Minestrone", [2]int{200, 350}, [2]int{6, 12}, tagsOf(vegan, []models.Tag{models.TagLegume, models.TagDiabeticFriendly, models.TagLoseWeight})},
	},
	"Indian": {
		{"Chicken Tikka Masala", [2]int{550, 800}, [2]int{35, 50}, []models.Tag{models.TagContainsLactose, models.TagContainsDairy, models.TagSpicy, models.TagGrilled, models.TagHalal}},
		{"Chana Masala", [2]int{400, 600}, [2]int{14, 22}, tagsOf(vegan, []models.Tag{models.TagLegume, models.TagSpicy, models.TagHalal, models.TagKosher})},
		{"Vegetable Biryani", [2]int{500, 700}, [2]int{10, 18}, tagsOf(veggie, []models.Tag{models.TagContainsGrains, models.TagSpicy, models.TagHalal})},
		{"Tandoori Salmon", [2]int{400, 550}, [2]int{35, 45}, tagsOf(fish, []models.Tag{models.TagGrilled, models.TagKeto, models.TagDiabeticFriendly, models.TagGainMuscle})},
	},
	"American": {
		{"Classic Cheeseburger", [2]int{750, 1100}, [2]int{35, 50}, []models.Tag{models.TagContainsGluten, models.TagContainsLactose, models.TagContainsDairy, models.TagContainsBread, models.TagGrilled, models.TagGainWeight}},
		{"Fried Chicken Basket", [2]int{850, 1200}, [2]int{40, 55}, []models.Tag{models.TagContainsGluten, models.TagFried, models.TagGainWeight}},
		{"Cobb Salad", [2]int{350, 550}, [2]int{25, 35}, []models.Tag{models.TagContainsLactose, models.TagContainsDairy, models.TagKeto, models.TagDiabeticFriendly}},
		{"BBQ Ribs", [2]int{800, 1100}, [2]int{45, 60}, []models.Tag{models.TagGrilled, models.TagKeto, models.TagGainMuscle}},
	},
	"Japanese": {
		{"Salmon Sushi Roll", [2]int{300, 500}, [2]int{15, 25}, tagsOf(fish, []models.Tag{models.TagContainsGrains, models.TagLoseWeight})},
		{"Tonkotsu Ramen", [2]int{700, 950}, [2]int{28, 40}, []models.Tag{models.TagContainsGluten, models.TagContainsGrains}},
		{"Vegetable Tempura", [2]int{450, 650}, [2]int{6, 12}, tagsOf(vegan, []models.Tag{models.TagContainsGluten, models.TagFried})},
		{"Miso Soup", [2]int{80, 150}, [2]int{5, 9}, tagsOf(vegan, []models.Tag{models.TagLegume, models.TagDiabeticFriendly, models.TagLoseWeight})},
	},
	"Mexican": {
		{"Bean Burrito", [2]int{600, 850}, [2]int{18, 28}, tagsOf(veggie, []models.Tag{models.TagLegume, models.TagContainsGluten, models.TagContainsLactose, models.TagContainsDairy, models.TagContainsBread})},
		{"Fish Tacos", [2]int{450, 650}, [2]int{22, 32}, tagsOf(fish, []models.Tag{models.TagFried, models.TagContainsGluten, models.TagSpicy})},
		{"Chicken Fajita Bowl", [2]int{500, 700}, [2]int{35, 45}, []models.Tag{models.TagGrilled, models.TagContainsGrains, models.TagSpicy, models.TagGainMuscle}},
		{"Guacamole Salad", [2]int{250, 400}, [2]int{4, 8}, tagsOf(vegan, []models.Tag{models.TagKeto, models.TagDiabeticFriendly, models.TagLoseWeight})},
	},
	"Thai": {
		{"Pad Thai", [2]int{600, 850}, [2]int{20, 30}, tagsOf(fish, []models.Tag{models.TagContainsNuts, models.TagContainsGrains, models.TagFried})},
		{"Green Curry Tofu", [2]int{450, 650}, [2]int{15, 22}, tagsOf(vegan, []models.Tag{models.TagSpicy, models.TagLegume})},
		{"Satay Skewers", [2]int{400, 600}, [2]int{28, 38}, []models.Tag{models.TagContainsNuts, models.TagGrilled, models.TagHalal}},
		{"Tom Yum Soup", [2]int{150, 300}, [2]int{12, 20}, tagsOf(fish, []models.Tag{models.TagSpicy, models.TagDiabeticFriendly, models.TagLoseWeight})},
	},
	"Mediterranean": {
		{"Falafel Wrap", [2]int{550, 750}, [2]int{16, 24}, tagsOf(vegan, []models.Tag{models.TagLegume, models.TagFried, models.TagContainsGluten, models.TagContainsBread, models.TagHalal, models.TagKosher})},
		{"Grilled Halloumi Plate", [2]int{500, 700}, [2]int{24, 32}, tagsOf(veggie, []models.Tag{models.TagContainsLactose, models.TagContainsDairy, models.TagGrilled, models.TagKeto})},
		{"Lamb Moussaka", [2]int{650, 900}, [2]int{30, 40}, []models.Tag{models.TagContainsLactose, models.TagContainsDairy, models.TagBaked, models.TagHalal}},
		{"Baked Cod", [2]int{350, 500}, [2]int{30, 40}, tagsOf(fish, []models.Tag{models.TagBaked, models.TagKosher, models.TagDiabeticFriendly, models.TagGainMuscle})},
	},
}

var cuisines = []string{"American", "Indian", "Italian", "Japanese", "Mediterranean", "Mexican", "Thai"}

// MealFactory generates catalog rows. A factory created with the same seed
// yields the same rows in the same order.
type MealFactory struct {
	fake      faker.Faker
	nameCache sync.Map // restaurant + meal names already issued
}

func NewMealFactory(seed int64) *MealFactory {
	return &MealFactory{fake: faker.NewWithSeed(rand.NewSource(seed))}
}

// CreateRestaurant returns a restaurant name and its cuisine.
func (mf *MealFactory) CreateRestaurant() (string, string) {
	return mf.fake.Company().Name(), mf.fake.RandomStringElement(cuisines)
}

// CreateMeal returns one complete catalog row for a restaurant of the given
// cuisine. Tags are consistent: vegan meals are vegetarian, vegetarian meals
// are pescatarian, and lactose implies dairy.
func (mf *MealFactory) CreateMeal(restaurant, cuisine string) catalog.RawRecord {
	dishes, ok := dishesByCuisine[cuisine]
	if !ok {
		dishes = dishesByCuisine[mf.fake.RandomStringElement(cuisines)]
	}
	d := dishes[mf.fake.IntBetween(0, len(dishes)-1)]

	rec := catalog.RawRecord{
		catalog.ColumnRestaurant: restaurant,
		catalog.ColumnMeal:       mf.uniqueName(restaurant, d.name),
		catalog.ColumnPrice:      format(mf.fake.Float64(2, 4, 25)),
	}
	calories := mf.fake.Float64(0, d.calories[0], d.calories[1])
	protein := mf.fake.Float64(1, d.protein[0], d.protein[1])
	rec[string(models.Calories)] = format(calories)
	rec[string(models.Protein)] = format(protein)
	rec[string(models.Fat)] = format(mf.fake.Float64(1, int(calories/40), int(calories/20)+1))
	rec[string(models.Sugar)] = format(mf.fake.Float64(1, 1, 30))
	rec[string(models.Calcium)] = format(mf.fake.Float64(0, 20, 400))
	rec[string(models.Fiber)] = format(mf.fake.Float64(0, 500, 9000))

	var set models.TagSet
	for _, t := range d.tags {
		set = set.With(t)
	}
	if set.Has(models.TagVegan) {
		rec[string(models.Cholesterol)] = "0"
	} else {
		rec[string(models.Cholesterol)] = format(mf.fake.Float64(0, 10, 180))
	}
	for _, t := range models.AllTags() {
		v := "0"
		if set.Has(t) {
			v = "1"
		}
		rec[t.Columns()[0]] = v
	}
	return rec
}

// CreateCatalog returns n rows spread over roughly one restaurant per four
// meals, at least two restaurants.
func (mf *MealFactory) CreateCatalog(n int) []catalog.RawRecord {
	count := n / 4
	if count < 2 {
		count = 2
	}
	type restaurant struct{ name, cuisine string }
	restaurants := make([]restaurant, count)
	for i := range restaurants {
		name, cuisine := mf.CreateRestaurant()
		restaurants[i] = restaurant{name: name, cuisine: cuisine}
	}

	records := make([]catalog.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		r := restaurants[i%count]
		records = append(records, mf.CreateMeal(r.name, r.cuisine))
	}
	return records
}

func (mf *MealFactory) uniqueName(restaurant, base string) string {
	name := base
	counter := 2
	for {
		if _, exists := mf.nameCache.LoadOrStore(restaurant+"\x00"+name, true); !exists {
			return name
		}
		name = fmt.Sprintf("%s %d", base, counter)
		counter++
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
