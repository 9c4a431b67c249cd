package catalog

const defaultSubject = "Mathematics"

var cbseMathTopics = []struct {
	grade  string
	topics []string
}{
	{"Class 1", []string{"Numbers from 1 to 9", "Addition", "Subtraction", "Shapes and Space", "Numbers from 10 to 20", "Time", "Measurement", "Data Handling", "Patterns", "Money"}},
	{"Class 2", []string{"What is Long, What is Round?", "Counting in Groups", "How Much Can You Carry?", "Counting in Tens", "Patterns", "Footprints", "Jugs and Mugs", "Tens and Ones", "My Funday", "Add our Points"}},
	{"Class 3", []string{"Where to Look From?", "Fun with Numbers", "Give and Take", "Long and Short", "Shapes and Designs", "Fun with Give and Take", "Time Goes On", "Who is Heavier?", "How Many Times?", "Play with Patterns", "Jugs and Mugs", "Can we Share?", "Smart Charts", "Rupees and Paise"}},
	{"Class 4", []string{"Building with Bricks", "Long and Short", "A Trip to Bhopal", "Tick-Tick-Tick", "The Way The World Looks", "The Junk Seller", "Jugs and Mugs", "Carts and Wheels", "Halves and Quarters", "Play with Patterns", "Tables and Shares", "How Heavy? How Light?", "Fields and Fences", "Smart Charts"}},
	{"Class 5", []string{"The Fish Tale", "Shapes and Angles", "How Many Squares?", "Parts and Wholes", "Does it Look the Same?", "Be My Multiple, I'll be Your Factor", "Can You See the Pattern?", "Mapping Your Way", "Boxes and Sketches", "Tenths and Hundredths", "Ways to Multiply and Divide", "Smart Charts"}},
	{"Class 6", []string{"Knowing Our Numbers", "Whole Numbers", "Playing with Numbers", "Basic Geometrical Ideas", "Understanding Elementary Shapes", "Integers", "Fractions", "Decimals", "Data Handling", "Mensuration", "Algebra", "Ratio and Proportion"}},
	{"Class 7", []string{"Integers", "Fractions and Decimals", "Data Handling", "Simple Equations", "Lines and Angles", "The Triangle and its Properties", "Congruence of Triangles", "Comparing Quantities", "Rational Numbers", "Practical Geometry", "Perimeter and Area", "Algebraic Expressions", "Exponents and Powers"}},
	{"Class 8", []string{"Rational Numbers", "Linear Equations in One Variable", "Understanding Quadrilaterals", "Practical Geometry", "Data Handling", "Squares and Square Roots", "Cubes and Cube Roots", "Comparing Quantities", "Algebraic Expressions and Identities", "Visualising Solid Shapes", "Mensuration", "Exponents and Powers", "Direct and Inverse Proportions", "Factorisation", "Introduction to Graphs"}},
}

// Default is the built-in CBSE mathematics catalog for Classes 1-8.
func Default() *Catalog {
	c := &Catalog{Board: "CBSE"}
	for _, g := range cbseMathTopics {
		topics := make([]string, len(g.topics))
		copy(topics, g.topics)
		c.Grades = append(c.Grades, Grade{
			Name:     g.grade,
			Subjects: []Subject{{Name: defaultSubject, Topics: topics}},
		})
	}
	return c
}
