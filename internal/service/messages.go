package service

import (
	"errors"
	"fmt"

	"reydbot/internal/domain"
)

// Inline callback ids
const (
	CallbackApprove     = "approve"
	CallbackBlock       = "block"
	CallbackConfirm     = "confirm"
	CallbackCancel      = "cancel"
	CallbackJobPause    = "job_pause"
	CallbackJobResume   = "job_resume"
	CallbackJobStop     = "job_stop"
	CallbackWatchToggle = "watch_toggle"
	CallbackResetStats  = "reset_stats"
)

// Reply keyboard labels
const (
	MenuAlmaz     = "💎 Avto Almaz"
	MenuScrape    = "👥 AvtoYuser"
	MenuAdmins    = "👨‍💼 Avto Admin Id"
	MenuBroadcast = "📣 Avto Reklama"
	MenuRaid      = "⚔️ Reyd"
	MenuProfile   = "📊 Profil"
	MenuLogout    = "🔄 Nomer almashtirish"
	MenuHelp      = "ℹ️ Yordam"
)

const (
	answerYes = "Ha"
	answerNo  = "Yo'q"
)

// MainMenu is the reply keyboard of a logged-in user
var MainMenu = [][]string{
	{MenuAlmaz, MenuScrape},
	{MenuAdmins, MenuBroadcast},
	{MenuRaid, MenuProfile},
	{MenuLogout, MenuHelp},
}

const (
	msgGenericError = "❌ Xatolik yuz berdi. Iltimos, keyinroq urinib ko'ring."
	msgNotApproved  = "❌ Bu funksiyadan foydalanish uchun avval ro'yxatdan o'ting va hisobingizga kiring."
	msgNotLoggedIn  = "❌ Hisobingizga ulanmagansiz. /start bosib tizimga kiring."
	msgNotFoundUser = "❌ Siz ro'yxatdan o'tmagansiz. /start ni bosing."

	msgAdminWelcome = "👋 Salom Admin! Tizimga xush kelibsiz."
	msgAdminRestore = "👋 Salom Admin! Maqomingiz tiklandi."

	msgApproved = "🎉 Siz admin tomonidan tasdiqlandingiz!\nEndi /start ni bosib ro'yxatdan o'tishingiz mumkin."

	msgAskPhone      = "✅ Siz tasdiqlangansiz.\n\nTelegram akkauntingizga kirish uchun *telefon raqamingizni* yuboring (masalan: `+998901234567`)."
	msgBadPhone      = "❌ Telefon raqam noto'g'ri formatda. Qaytadan yuboring (masalan: +998901234567)."
	msgConnecting    = "🔄 Raqam: %s\nUlanmoqda... Kod yuborilmoqda..."
	msgAskCode       = "✅ Kod yuborildi! Telegramdan kelgan *kodni* kiriting:"
	msgBadCode       = "❌ Kod faqat raqamlardan iborat bo'lishi kerak. Qaytadan kiriting:"
	msgAskPassword   = "🔐 2 bosqichli parolni yuboring:"
	msgCheckingCode  = "🔄 Kod tekshirilmoqda..."
	msgCheckingPass  = "🔄 Parol tekshirilmoqda..."
	msgLoginWait     = "⏳ Iltimos, kuting..."
	msgStaleLogin    = "⚠️ Xatolik: Sessiya topilmadi yoki eskirgan. Iltimos, /start bosib boshidan boshlang."
	msgLoggedIn      = "🎉 *Muvaffaqiyatli kirdingiz!* Userbot ishga tushdi."
	msgLoginTimeout  = "⏳ Vaqt tugadi. Iltimos, /start bosib qaytadan urinib ko'ring."
	msgInvalidCode   = "❌ Kod noto'g'ri kiritildi. Iltimos, /start bosib, raqamingizni va yangi kodni qaytadan kiriting."
	msgCodeExpired   = "⌛️ Kodning muddati tugagan. /start bosib yangi kod oling."
	msgInvalidPhone  = "❌ Telefon raqam noto'g'ri. /start bosib qayta urinib ko'ring."
	msgInvalidPass   = "❌ Parol noto'g'ri. /start bosib qayta urinib ko'ring."
	msgLoginFlood    = "⏳ Telegram sizni vaqtincha blokladi. Iltimos, %d soniya kuting va keyin /start bosing."
	msgLoginFailed   = "❌ Kirishda xatolik yuz berdi. /start bosib qayta urinib ko'ring."
	msgSessionReset  = "⚠️ Sessiyangiz eskirgan bo'lishi mumkin. Iltimos, /start bosib qaytadan kiring."
	msgLoggedOut     = "🔄 *Tizimdan chiqildi.*\n\nBoshqa raqam bilan kirish uchun /start ni bosing."
	msgNotLoggedOut  = "❌ Siz tizimga kirmagansiz."
	msgAskRecipients = "🚀 *Avto Reklama*\n\nIltimos, reklama yuboriladigan foydalanuvchilar username-larini yuboring.\n\n_Misol:_\n@user1\n@user2\n@user3\n\n(Maksimum 100 ta username)"
	msgNoRecipients  = "❌ Hech qanday username topilmadi. Iltimos, qaytadan yuboring (masalan: @user1 @user2)."
	msgTooMany       = "❌ Maksimum %d ta username mumkin. Siz %d ta yubordingiz."
	msgRecipientsOK  = "✅ *%d ta* foydalanuvchi qabul qilindi.\n\nEndi reklama matnini yoki stikerini yuboring:"
	msgEmptyPayload  = "❌ Matn bo'sh. Iltimos, matn, stiker yoki rasm yuboring."
	msgConfirmAd     = "📜 Reklama:\n\n%s\n\n👥 Qabul qiluvchilar: %d ta\n\nBoshlashni tasdiqlaysizmi? (Ha/Yo'q)"
	msgConfirmAgain  = "❓ Iltimos, \"Ha\" yoki \"Yo'q\" deb javob bering."
	msgCancelled     = "❌ Bekor qilindi."
	msgNothingToStop = "ℹ️ Bekor qilinadigan jarayon yo'q."
	msgNoConfirm     = "ℹ️ Tasdiqlanadigan reklama yo'q."
	msgAskRaidTarget = "⚔️ *Reyd*\n\nGuruh yoki foydalanuvchi havolasini yuboring (t.me/..., @username yoki taklif havolasi):"
	msgBadTarget     = "❌ Havola noto'g'ri. Masalan: @guruh, https://t.me/guruh yoki https://t.me/+AbCdEf"
	msgAskRaidCount  = "🔢 Necha marta yuborilsin? (1-%d)"
	msgBadCount      = "❌ Son 1 dan %d gacha bo'lishi kerak. Qaytadan kiriting:"
	msgAskRaidText   = "✍️ Yuboriladigan matn, stiker yoki rasmni yuboring:"
	msgAskScrape     = "👥 *AvtoYuser*\n\nFoydalanuvchilari yig'iladigan guruh havolasini yuboring:"
	msgAskAdmins     = "👨‍💼 *Avto Admin Id*\n\nAdminlari yig'iladigan guruh havolasini yuboring:"
	msgAskLimit      = "🔢 Nechta foydalanuvchi yig'ilsin? (1-%d)"
	msgJobRunning    = "⚠️ %s allaqachon ishlamoqda. Avval uni to'xtating."
	msgJobNotFound   = "Jarayon topilmadi"
)

const pendingNotice = "👋 Assalomu alaykum, Hurmatli *%s*!\n\n⚠️ Siz botdan foydalanish uchun botning oylik to'lovini amalga oshirmagansiz.\n⚠️ Botdan foydalanish uchun admin orqali to'lov qiling !!!\n\n👨‍💼 Admin: @ortiqov\\_x7"

func pendingMessage(name string) domain.Message {
	return domain.Markdown(fmt.Sprintf(pendingNotice, escapeMarkdown(name)))
}

func menuMessage(text string) domain.Message {
	return domain.Message{Text: text, Markdown: true, Keyboard: MainMenu}
}

func confirmMessage(text string) domain.Message {
	return domain.Message{
		Text:   text,
		Inline: [][]domain.Button{{
			{Text: "✅ Boshlash", Unique: CallbackConfirm},
			{Text: "❌ Bekor qilish", Unique: CallbackCancel},
		}},
	}
}

func promptMessage(text string) domain.Message {
	return domain.Message{Text: text, Markdown: true, RemoveKeyboard: true}
}

func jobControls(job string, paused bool) [][]domain.Button {
	toggle := domain.Button{Text: "⏸ Pauza", Unique: CallbackJobPause, Data: job}
	if paused {
		toggle = domain.Button{Text: "▶️ Davom etish", Unique: CallbackJobResume, Data: job}
	}
	return [][]domain.Button{{toggle, {Text: "⏹ To'xtatish", Unique: CallbackJobStop, Data: job}}}
}

const (
	msgMenu      = "🏠 *Asosiy menyu*\n\nKerakli bo'limni tanlang:"
	msgWelcome   = "✅ *Userbot ulangan.*\n\nKerakli bo'limni tanlang:"
	msgHelp      = "ℹ️ *Yordam*\n\n💎 *Avto Almaz* - guruhlardagi almaz tugmalarini avtomatik bosadi\n👥 *AvtoYuser* - guruh a'zolarining username-larini yig'adi\n👨‍💼 *Avto Admin Id* - guruh adminlarini yig'adi\n📣 *Avto Reklama* - username-larga reklama yuboradi\n⚔️ *Reyd* - guruhga xabarni ko'p marta yuboradi\n📊 *Profil* - statistikangiz\n🔄 *Nomer almashtirish* - boshqa raqam bilan kirish\n\n/cancel - joriy jarayonni bekor qilish"
	msgUserAdded = "✅ Foydalanuvchi %d tasdiqlandi."
	msgBlocked   = "⛔️ Foydalanuvchi %d bloklandi."
	msgNoUser    = "❌ Foydalanuvchi topilmadi."
	msgOnlyAdmin = "⛔️ Bu buyruq faqat admin uchun."
	msgNoBlockOp = "❌ Adminni bloklab bo'lmaydi."
	msgBadChange = "❌ Bu foydalanuvchi holatini o'zgartirib bo'lmaydi."
)

// ErrorText turns a service error into the text shown to the user
func ErrorText(err error) string {
	switch {
	case errors.Is(err, ErrNotApproved):
		return msgNotApproved
	case errors.Is(err, ErrNotLoggedIn):
		return msgNotLoggedIn
	case errors.Is(err, ErrNotOperator):
		return msgOnlyAdmin
	case errors.Is(err, ErrUserNotFound):
		return msgNoUser
	case errors.Is(err, ErrOperatorTarget):
		return msgNoBlockOp
	case errors.Is(err, domain.ErrInvalidTransition):
		return msgBadChange
	default:
		return msgGenericError
	}
}

// ApprovedText confirms an approval to the operator
func ApprovedText(chatID int64) string {
	return fmt.Sprintf(msgUserAdded, chatID)
}

// BlockedText confirms a block to the operator
func BlockedText(chatID int64) string {
	return fmt.Sprintf(msgBlocked, chatID)
}

// Replies the handlers send directly
const (
	BadUserIDText = "❌ Foydalanuvchi ID raqami noto'g'ri. Masalan: /approve 123456789"
	ResetText     = "♻️ Statistika tozalandi."
)
