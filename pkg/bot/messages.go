package bot

import "reimubot/pkg/economy"

const (
	colorShrineRed = 0xDC143C
	colorGold      = 0xF1C40F
	colorRed       = 0xE74C3C
)

type fortuneSlip struct {
	Color     int
	Love      string
	Career    string
	Health    string
	Action    string
	LuckyItem string
}

var fortuneSlips = map[economy.Fortune]fortuneSlip{
	economy.GreatBlessing: {
		Color:     0xFFD700,
		Love:      "Love will be as warm as a spring breeze. Good news is on the way!",
		Career:    "Your career is soaring like the midday sun. A promotion or a raise might be coming!",
		Health:    "Your body is full of energy. Keep up your current condition!",
		Action:    "Today's a good day to visit a shrine and give thanks for the blessings!",
		LuckyItem: "Red and white shrine maiden outfit. Wearing it will boost your confidence!",
	},
	economy.ModerateBlessing: {
		Color:     0x00FF00,
		Love:      "Love progresses smoothly, but don't forget to pay attention to the little details.",
		Career:    "Your career is stable with small achievements. Don't get too carried away!",
		Health:    "Health is decent. Moderate exercise can boost your energy further.",
		Action:    "Relax with a cup of tea. Your energy needs a break too.",
		LuckyItem: "Paper wand. Carry it with you to enhance your fortune!",
	},
	economy.SmallBlessing: {
		Color:     0xADD8E6,
		Love:      "Love faces minor hiccups. Patience will sort it out.",
		Career:    "Career hits a small snag. Take it slow, no rush.",
		Health:    "You might feel tired occasionally. Rest up a bit.",
		Action:    "Sweep the shrine grounds. You might just sweep away bad luck!",
		LuckyItem: "Amulet. Carrying it will give you some peace of mind.",
	},
	economy.Blessing: {
		Color:     0x1E90FF,
		Love:      "Love is steady. Maintaining the status quo is just fine.",
		Career:    "Career is stable. Keep working hard, and you'll see rewards.",
		Health:    "No major health issues. Stay positive!",
		Action:    "Donate some money at the shrine. Good fortune might favor you more.",
		LuckyItem: "Sticky rice dumpling. Eating one will lift your spirits!",
	},
	economy.MinorBlessing: {
		Color:     0xFFA500,
		Love:      "Love feels a bit lukewarm. Wait patiently for the right moment.",
		Career:    "Career progress is slow. Don't lose heart, take it step by step.",
		Health:    "Energy is a bit low. Rest up and don't overdo it.",
		Action:    "Help clean the shrine. Your luck might improve!",
		LuckyItem: "Bell. Its sound can help you relax.",
	},
	economy.Misfortune: {
		Color:     0xFF4500,
		Love:      "Love might hit some trouble. Communicate more to avoid misunderstandings.",
		Career:    "Career faces obstacles. Seeking help could make things easier.",
		Health:    "You're feeling a bit worn out. Don't push yourself, take a break.",
		Action:    "Visit the shrine to pray. This fortune isn't looking great!",
		LuckyItem: "Spell card. Carry it to ward off misfortune.",
	},
	economy.GreatMisfortune: {
		Color:     0x8B0000,
		Love:      "Love could face a crisis. Handle it carefully and avoid rash moves.",
		Career:    "Career is at a low point. Now's not the time for big decisions.",
		Health:    "Health isn't great. Rest immediately and don't strain yourself!",
		Action:    "Head to the shrine to pray right away. This fortune needs fixing!",
		LuckyItem: "Protective charm. Hold it tight, it'll shield you.",
	},
}

var (
	goodFortuneComments = []string{
		"Hmm, this fortune is pretty good. Come back to the shrine to thank me, and don't forget the donation money!",
		"Nice luck! Looks like my spiritual power is reliable as always!",
		"Good fortune, huh? Perfect day to relax with some tea~",
		"Not bad, this fortune makes me want to draw a few more myself!",
		"My spiritual power says you're lucky today. Don't waste it!",
	}
	badFortuneComments = []string{
		"Ouch, this luck... Want me to blast away the bad fortune with my spell cards? It'll cost you, of course!",
		"Misfortune? Don't blame me, the fortune decides itself. I'm just the shrine maiden~",
		"Better come to the shrine for a blessing, or I can't guarantee tomorrow!",
		"This luck is rough. Hurry to the shrine, and I'll figure out a way to help!",
		"My spiritual power says your luck is bad. Play it safe and visit the shrine for a blessing!",
	}
	plainFortuneComments = []string{
		"It's alright, a calm life is true happiness. Don't worry too much~",
		"Work hard, and things will improve. I believe in you!",
		"My spiritual power says this is a fair result. Stop complaining and go earn some donation money!",
		"Average luck? Play it steady and avoid risks!",
		"This fortune says your luck is ordinary. A shrine visit could boost it!",
	}
)

func fortuneComments(f economy.Fortune) []string {
	switch {
	case f.IsGood():
		return goodFortuneComments
	case f.IsBad():
		return badFortuneComments
	default:
		return plainFortuneComments
	}
}

var tierNames = map[economy.Tier]string{
	economy.TierBasic:  "Basic",
	economy.TierNormal: "Normal",
	economy.TierHard:   "Hard",
}

// workTasks holds the chore names shown for each tier.
var workTasks = map[economy.Tier][]string{
	economy.TierBasic: {
		"Sweeping the grounds",
		"Polishing the stone lions",
		"Clearing fallen leaves",
		"Organizing the ema boards",
		"Cleaning the shrine's backyard",
	},
	economy.TierNormal: {
		"Chasing off pesky fairies",
		"Handling a minor incident",
		"Rescuing a lost animal",
		"Cleaning the festival grounds",
		"Carrying offerings",
	},
	economy.TierHard: {
		"Resolving a major incident",
		"Taking down a nasty youkai",
		"Fixing a broken barrier",
		"Driving off intruders",
		"Calming a rogue nature spirit",
	},
}

// donationThanks picks the comment pool by donation size.
func donationThanks(amount int64) []string {
	switch {
	case amount < 1000:
		return []string{
			"Thanks for donating %s offering money! It's not much, but Reimu appreciates it~",
			"Got your %s offering money! The shrine can buy some tea leaves now. Thanks!",
			"Thank you for donating %s offering money! Reimu will remember your kindness~",
		}
	case amount <= 5000:
		return []string{
			"Wow, %s offering money! Thanks, the shrine can finally get some repairs!",
			"You donated %s offering money! Reimu is thrilled to have such a great supporter~",
			"Thanks for the %s offering money! Reimu will pray for your good fortune!",
		}
	default:
		return []string{
			"Whoa, %s offering money?! Reimu is touched; the shrine is saved!",
			"You donated %s offering money?! You're the biggest contributor, and Reimu will pray extra hard for you!",
			"Thank you for %s offering money! Reimu will never forget you; this means a lot to the shrine!",
		}
	}
}

func (h *Handler) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[h.rng.IntN(len(options))]
}
