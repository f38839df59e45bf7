package entry

const styleID = "custom-style"

// Style is the shared presentation block installed once into a merged conversation
const Style = `<style type="text/css" id="custom-style">
  body {
    font-size: 13px;
    font-family: Arial, Helvetica, sans-serif;
  }

  hr {
    margin: 10px auto;
    width: 750px;
    min-width: 750px;
    border-top: 5px solid;
  }

  a {
    color: #00c;
  }

  .hChatLog,
  .noteContainer {
    margin: 0 auto;
    width: 750px;
    min-width: 750px;
  }

  .message {
    max-width: 640px;
  }

  cite {
    font-style: normal;
  }

  .dt {
    color: #777;
  }

  .fn {
    font-weight: bold;
  }

  audio,
  .published {
    display: block;
  }

  .full-text {
    display: none;
  }
</style>`
