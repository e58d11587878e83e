package sentiment

// polarity scores on a -1..1 scale.
var englishPolarity = map[string]float64{
	// strong positive
	"excellent": 0.9, "amazing": 0.85, "wonderful": 0.85, "fantastic": 0.85,
	"outstanding": 0.9, "perfect": 0.95, "brilliant": 0.85, "superb": 0.85,
	"magnificent": 0.9, "ecstatic": 0.9, "thrilled": 0.85, "elated": 0.85,
	"delighted": 0.8, "overjoyed": 0.9,

	// moderate positive
	"good": 0.6, "great": 0.75, "nice": 0.5, "love": 0.8, "loved": 0.8,
	"loving": 0.7, "happy": 0.7, "beautiful": 0.75, "enjoy": 0.65,
	"enjoyed": 0.65, "like": 0.5, "pleasant": 0.6, "positive": 0.6,
	"best": 0.85, "better": 0.5, "fun": 0.65, "interesting": 0.5,
	"awesome": 0.8, "joy": 0.8, "joyful": 0.8, "glad": 0.6, "grateful": 0.6,
	"cheerful": 0.7, "excited": 0.6, "lucky": 0.5, "lovely": 0.7,
	"pleased": 0.6, "proud": 0.5, "hopeful": 0.5, "relaxed": 0.4,
	"calm": 0.3, "peaceful": 0.5, "satisfied": 0.5, "comfortable": 0.4,
	"yay": 0.6, "celebrate": 0.6, "blessed": 0.6,

	// mild positive
	"okay": 0.2, "ok": 0.2, "fine": 0.3, "decent": 0.4, "satisfactory": 0.4,
	"easy": 0.3, "fast": 0.3, "new": 0.2,

	// strong negative
	"terrible": -0.9, "awful": -0.85, "horrible": -0.85, "disgusting": -0.9,
	"appalling": -0.9, "dreadful": -0.85, "atrocious": -0.9, "abysmal": -0.95,
	"furious": -0.85, "miserable": -0.85, "hopeless": -0.8, "heartbroken": -0.85,
	"devastated": -0.9, "hatred": -0.9, "terrified": -0.8,

	// moderate negative
	"bad": -0.6, "hate": -0.8, "sad": -0.7, "ugly": -0.75,
	"disappointing": -0.7, "disappointed": -0.65, "poor": -0.65,
	"wrong": -0.6, "worst": -0.85, "worse": -0.5, "dislike": -0.5,
	"negative": -0.6, "annoying": -0.65, "annoyed": -0.6, "boring": -0.6,
	"fail": -0.7, "failure": -0.75, "angry": -0.7, "mad": -0.6,
	"upset": -0.6, "lonely": -0.6, "depressed": -0.75, "unhappy": -0.65,
	"scared": -0.6, "afraid": -0.6, "worried": -0.5, "anxious": -0.5,
	"stressed": -0.5, "frustrated": -0.6, "tired": -0.3, "exhausted": -0.5,
	"hurt": -0.6, "pain": -0.6, "painful": -0.65, "cry": -0.5, "crying": -0.55,
	"sick": -0.5, "gross": -0.6, "stupid": -0.6, "ridiculous": -0.5,
	"sorry": -0.3, "sucks": -0.6, "nervous": -0.4, "bored": -0.4,

	// context dependent
	"cheap": -0.3, "slow": -0.3, "hard": -0.2, "old": -0.2, "simple": 0.1,
	"complex": -0.1,
}

// modifier strengths: positive values intensify, negative values dampen.
var englishModifiers = map[string]float64{
	"very": 0.3, "extremely": 0.5, "absolutely": 0.5, "totally": 0.4,
	"really": 0.3, "so": 0.3, "quite": 0.2, "incredibly": 0.5,
	"remarkably": 0.4, "particularly": 0.3, "especially": 0.3,
	"super": 0.4, "utterly": 0.5, "completely": 0.4, "thoroughly": 0.4,
	"too": 0.2, "exceptionally": 0.5,

	"slightly": -0.3, "somewhat": -0.3, "rather": -0.2, "fairly": -0.1,
	"marginally": -0.4, "barely": -0.5, "hardly": -0.5, "scarcely": -0.5,
}

var englishNegations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"nobody": true, "nothing": true, "nowhere": true, "none": true,
	"cannot": true, "cant": true, "dont": true, "doesnt": true, "didnt": true,
	"isnt": true, "wasnt": true, "arent": true, "werent": true, "wont": true,
	"wouldnt": true, "shouldnt": true, "couldnt": true, "aint": true,
	"without": true,
}
