package engine

import (
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/models"
)

// Fixed reply texts. Anything that interpolates state lives in a helper
// below instead.
const (
	loggedOutText      = "✅ You have been logged out."
	sessionRestartText = "⚠️ Restarting session. Type 'login' or 'register' to begin."
	sessionErrorText   = "⚠️ Session error. Please login again."
	sessionLostText    = "⚠️ Session lost. Start again."

	loginUsageText = "⚠️ Usage: login <phone> <pin>\nExample: login 08136187098 0167"
	askLoginPhone  = "📲 Please send your whatsapp number that you used to register on our site :"
	askLoginPIN    = "🔒 Send your 4-6 digit PIN:"
	badLoginPIN    = "🔑 Incorrect PIN. Reply 1 to try again."

	welcomeFallbackText = "❗ Reply 1 to Login, 2 to Register, 3 for Services, 4 for check balance, 5 for Funding, or # for log out."

	invalidNetworkText   = "❗ Invalid network. Use: mtn, airtel, glo, 9mobile"
	askRecipientPhone    = "📱 Enter recipient phone number or type 'me' for your number:"
	invalidRecipientText = "❗ Invalid phone. Enter 11 digit phone number:"
	invalidSelectionText = "❗ Invalid selection. Reply with plan number or plan id:"
	invalidPINText       = "❌ Invalid PIN. Transaction cancelled."
	loginRequiredText    = "⚠️ You must be logged in to purchase. Reply 1 to Login."
	missingAPIKeyText    = "⚠️ You don’t have an API key linked. Please register or update your account before making a purchase."
	noFundingText        = "⚠️ Please login to the website to generate your funding account."
)

func mainMenuText() string {
	return "Main Menu\n" +
		"1) Airtime\n" +
		"2) Data\n" +
		"3) Cable TV\n" +
		"4) Electricity Bills\n" +
		"5) Check Balance\n" +
		"6) Funding\n" +
		"#) Logout\n\n" +
		"Reply with a number or type the command (airtime, data, cable, bill, balance, funding, logout)."
}

func welcomeText(brand string) string {
	return "👋 Welcome to " + brand + "!\n" +
		"Reply:\n" +
		"1️⃣ Login (phone + PIN)\n" +
		"2️⃣ Register\n" +
		"3️⃣ Services\n" +
		"Tip: you can also type: login <phone> <pin>\n" +
		"Type 'logout' anytime to exit."
}

func menuResetText(brand string) string {
	return "👋 Welcome to " + brand + "!\n" +
		"Reply:\n" +
		"1️⃣ Login (phone + PIN)\n" +
		"2️⃣ Register\n" +
		"3️⃣ Services\n" +
		"Tip: type 'menu' or 0 anytime to return here."
}

func servicesMenuText() string {
	return "🛍 Services:\n" +
		"1️⃣ Airtime\n" +
		"2️⃣ Data\n" +
		"3️⃣ Cable TV\n" +
		"4️⃣ Electricity Bills\n" +
		"5️⃣ Check Balance\n" +
		"6️⃣ Funding\n" +
		"#) Logout\n" +
		"Reply with a number."
}

func networkMenuText(title string) string {
	return title + "\n" +
		"1️⃣ mtn\n" +
		"2️⃣ airtel\n" +
		"3️⃣ glo\n" +
		"4️⃣ 9mobile\n" +
		"Reply with number or network name."
}

func cableMenuText() string {
	return "📺 Choose Cable Provider:\n" +
		"1️⃣ gotv\n" +
		"2️⃣ dstv\n" +
		"3️⃣ startimes\n" +
		"Reply with number or provider name."
}

func billMenuText() string {
	return "⚡ Choose Electricity Provider:\n" +
		"1️⃣ ikeja\n" +
		"2️⃣ eko\n" +
		"3️⃣ abuja\n" +
		"4️⃣ kano\n" +
		"5️⃣ portharcourt\n" +
		"6️⃣ ibadan\n" +
		"7️⃣ kaduna\n" +
		"8️⃣ jos\n" +
		"Reply with number or provider name."
}

// fundingText lists the funding bank accounts attached to a wallet. A
// wallet with no account numbers gets the website prompt instead.
func fundingText(w models.WalletProfile) string {
	var lines []string
	if strings.TrimSpace(w.Main.Number) != "" {
		bank := w.Main.Bank
		if bank == "" {
			bank = models.DefaultBankName
		}
		lines = append(lines, fmt.Sprintf("🏦 Main: %s | %s | %s", w.Main.Name, w.Main.Number, bank))
	}
	if strings.TrimSpace(w.Alt.Number) != "" {
		bank := w.Alt.Bank
		if bank == "" {
			bank = models.DefaultBankName
		}
		lines = append(lines, fmt.Sprintf("🔁 Alt: %s | %s | %s", w.Alt.Name, w.Alt.Number, bank))
	}
	if len(lines) == 0 {
		return noFundingText
	}
	return strings.Join(lines, "\n")
}

// dashboardText is the greeting shown after login and on the menu shortcut.
func dashboardText(user *models.User) string {
	return fmt.Sprintf("✅ Welcome back %s!\n💰 Balance: ₦%s\n%s\n%s",
		user.DisplayName, formatNaira(user.Wallet.Balance), fundingText(user.Wallet), mainMenuText())
}

func balanceText(user *models.User) string {
	return fmt.Sprintf("💰 Your balance is: ₦%s", formatNaira(user.Wallet.Balance))
}

// planListText renders a numbered one-per-line plan menu.
func planListText(header string, plans []models.Plan) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	for i, p := range plans {
		amount := "₦" + formatNaira(p.Amount)
		fmt.Fprintf(&b, "%d️⃣ %s — %s — %s\n", i+1, p.ID, p.Name, amount)
	}
	b.WriteString("\nReply with plan number (e.g. 1) or plan id.")
	return b.String()
}
