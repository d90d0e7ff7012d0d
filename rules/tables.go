package rules

// LabelExplicitAdult is referenced by the filter engine's
// allow-explicit-content override.
const LabelExplicitAdult = "Explicit Adult Content"

type ruleDef struct {
	key      string
	label    string
	patterns []string
}

// L1: matching any of these blocks the submission unconditionally.
// Ordered by severity; evaluation stops at the first match.
var hardBlockRules = []ruleDef{
	{
		key:   "csam",
		label: "Child Safety",
		patterns: []string{
			`child\s*(porn|sexual|abuse\s*material)`,
			`\bcsam\b`,
			`(sell|trade|share).{0,40}(underage|minor).{0,40}(photo|video|image)`,
		},
	},
	{
		key:   "violent_threat",
		label: "Violent Threats",
		patterns: []string{
			`i\s*(am\s*going\s*to|will|'?m\s*gonna)\s*(kill|murder|shoot|stab)\s*(you|him|her|them)`,
			`(kill|shoot|stab)\s*you\s*(and\s*your|tonight|tomorrow)`,
			`you\s*(deserve|are\s*going)\s*to\s*die`,
		},
	},
	{
		key:   "terrorism_instruction",
		label: "Terrorism",
		patterns: []string{
			`how\s*to\s*(build|make|assemble).{0,30}(bomb|explosive|ied)`,
			`(join|fund|support).{0,30}(isis|terror\s*cell|jihadist\s*group)`,
			`instructions?\s*for.{0,30}(mass\s*casualty|terror\s*attack)`,
		},
	},
	{
		key:   "trafficking",
		label: "Human Trafficking",
		patterns: []string{
			`(buy|sell|purchase).{0,30}(human|person|people|child(ren)?)\b`,
			`human\s*trafficking\s*(services|offer)`,
			`(smuggle|transport).{0,30}(undocumented|people)\s*across`,
		},
	},
}

// L2: matching labels the content for read-time filtering but never
// blocks. All rules run; labels accumulate.
var softLabelRules = []ruleDef{
	{
		key:   "graphic_violence",
		label: "Graphic Violence",
		patterns: []string{
			`(blood|gore|dismember|decapitat|mutilat)`,
			`(beat|stomp)\w*\s*(him|her|them)\s*(to\s*death|bloody)`,
			`graphic\s*(violence|injury|death)`,
		},
	},
	{
		key:   "hate_speech",
		label: "Hate Speech",
		patterns: []string{
			`(all|those)\s*(immigrants?|foreigners?|jews|muslims|gays?)\s*(are|should)`,
			`(go\s*back\s*to\s*your\s*country)`,
			`(racial|ethnic)\s*(purity|superiority)`,
		},
	},
	{
		key:   "explicit_adult",
		label: LabelExplicitAdult,
		patterns: []string{
			`\b(nsfw|explicit\s*content|porn(ographic)?)\b`,
			`\b(nude[sz]?|naked\s*(photo|pic|video))\b`,
			`(sexual(ly)?\s*explicit|xxx)`,
		},
	},
	{
		key:   "drug_use",
		label: "Drug Use",
		patterns: []string{
			`\b(heroin|cocaine|meth(amphetamine)?|fentanyl)\b`,
			`(smoking|injecting|snorting)\s*(weed|crack|dope)`,
			`(buy|sell|score)\s*(drugs|narcotics)`,
		},
	},
	{
		key:   "political_extremism",
		label: "Political Extremism",
		patterns: []string{
			`(overthrow|abolish)\s*the\s*(government|state)\s*by\s*force`,
			`(armed|violent)\s*(revolution|uprising|insurrection)`,
			`day\s*of\s*the\s*rope`,
		},
	},
	{
		key:   "profanity",
		label: "Profanity",
		patterns: []string{
			`\b(fuck\w*|shit\w*|bitch\w*|asshole|bastard|cunt)\b`,
			`\b(goddamn|motherfucker|dickhead)\b`,
		},
	},
}
