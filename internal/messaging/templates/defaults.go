package templates

// Built-in message bodies. Blocks are separated by exactly one blank line.
const (
	defaultConfirmation = `✅ *ПОДТВЕРЖДЕНИЕ ЗАПИСИ*

👤 *Уважаемый(ая) {firstName}!*

📅 *ДЕТАЛИ ЗАПИСИ*
━━━━━━━━━━━━━━━━

📅 Дата: {date}

⏰ Время: {time}

💰 Стоимость: {price} тенге

📍 {address}

❗️ *ВАЖНО*
━━━━━━━━━━━━━━━━

• Запись успешно создана

• За 3 часа до записи вы получите напоминание

• Если у вас изменились планы, сообщите нам заранее

Жду вас на приёме!`

	defaultReminder = `⏰ *Напоминание: до вашей записи осталось {hoursBefore}!*

👤 *Уважаемый(ая) {firstName}!*

📝 *ДЕТАЛИ ЗАПИСИ*
━━━━━━━━━━━━━━━━

📅 Дата: {date}

⏰ Время: {time}

💰 Стоимость: {price} тенге

📍 {address}

❗️ *ВАЖНО*
━━━━━━━━━━━━━━━━

• Пожалуйста, приходите вовремя

• Если у вас изменились планы, сообщите нам заранее

• Для отмены записи отправьте "2"

Жду вас на приёме!`

	defaultCancellation = `❌ *Запись отменена*

👤 Уважаемый(ая) {firstName}!

Ваша запись на {date} в {time} была успешно отменена.

Если возникнут вопросы, свяжитесь с нами.`

	defaultNoActive = `❌ У вас нет активных записей для отмены.`
)
