package quiz

// Section names quiz questions by the total they feed.
type Section string

const (
	// SectionFear is the blocker inventory: Likert statements about what
	// holds the user back. Summed into fear_total.
	SectionFear Section = "fear"
	// SectionReadiness is the readiness inventory: scored options summed
	// into readiness_total, the classification input.
	SectionReadiness Section = "readiness"
)

// Option is one selectable answer with its score contribution and an
// optional qualitative flag recorded on the progress.
type Option struct {
	Text  string
	Score int
	Flag  string
}

// Question is a single quiz step. Index is its position in the overall
// sequence; Section designates which total the chosen option's score joins.
type Question struct {
	Index   int
	Section Section
	Text    string
	Options []Option
}

// likert is the shared 0..3 scale for the blocker inventory.
var likert = []Option{
	{Text: "Never", Score: 0},
	{Text: "Sometimes", Score: 1},
	{Text: "Often", Score: 2},
	{Text: "Always", Score: 3},
}

// DefaultQuestions is the author-readiness quiz: five blocker statements
// followed by eight readiness questions (max readiness total 16).
func DefaultQuestions() []Question {
	qs := []Question{
		{Section: SectionFear, Text: "I put off writing because the result might not be good enough.", Options: likert},
		{Section: SectionFear, Text: "I worry about what people close to me will think of my text.", Options: likert},
		{Section: SectionFear, Text: "I compare my drafts to published authors and stop.", Options: likert},
		{Section: SectionFear, Text: "I feel I need one more course before I am allowed to start.", Options: likert},
		{Section: SectionFear, Text: "I abandon projects once the first excitement fades.", Options: likert},

		{Section: SectionReadiness, Text: "Do you have a story you keep returning to?", Options: []Option{
			{Text: "Not yet", Score: 0},
			{Text: "A vague feeling", Score: 1},
			{Text: "Yes, it will not let me go", Score: 2},
		}},
		{Section: SectionReadiness, Text: "Have you written anything in the last month?", Options: []Option{
			{Text: "Nothing", Score: 0},
			{Text: "Notes and fragments", Score: 1},
			{Text: "Regular pages", Score: 2},
		}},
		{Section: SectionReadiness, Text: "Can you protect two hours a week for writing?", Options: []Option{
			{Text: "Honestly, no", Score: 0, Flag: "no_time"},
			{Text: "With effort", Score: 1},
			{Text: "Yes, the slot exists", Score: 2},
		}},
		{Section: SectionReadiness, Text: "How do you take critical feedback on your text?", Options: []Option{
			{Text: "It stops me for weeks", Score: 0, Flag: "feedback_sensitive"},
			{Text: "It stings but I continue", Score: 1},
			{Text: "I ask for more of it", Score: 2},
		}},
		{Section: SectionReadiness, Text: "Do you know who you are writing for?", Options: []Option{
			{Text: "No idea", Score: 0},
			{Text: "Roughly", Score: 1},
			{Text: "I can describe the reader", Score: 2},
		}},
		{Section: SectionReadiness, Text: "Have you finished a long text before (thesis, report, story)?", Options: []Option{
			{Text: "Never", Score: 0},
			{Text: "Once, long ago", Score: 1},
			{Text: "More than once", Score: 2},
		}},
		{Section: SectionReadiness, Text: "Is there support around you for this project?", Options: []Option{
			{Text: "I would hide it", Score: 0, Flag: "isolated"},
			{Text: "One or two people know", Score: 1},
			{Text: "People are waiting for it", Score: 2},
		}},
		{Section: SectionReadiness, Text: "If the book never sells, was the work still worth it?", Options: []Option{
			{Text: "No", Score: 0},
			{Text: "Unsure", Score: 1},
			{Text: "Yes", Score: 2},
		}},
	}
	for i := range qs {
		qs[i].Index = i
	}
	return qs
}
